package netlink

import (
	"fmt"

	"github.com/mdlayher/genetlink"
)

// resolution is the generic-netlink family id and multicast group id a
// socket needs to join, looked up by name through the controller family
// (spec §4.1 "family/group resolution").
type resolution struct {
	FamilyID uint16
	GroupID  uint32
}

// resolve looks up family and group by name via the genl controller. It
// dials its own short-lived connection: the controller lookup is a
// request/response exchange, unrelated to the long-lived multicast sockets
// C and D hold open.
func resolve(family, group string) (resolution, error) {
	conn, err := genetlink.Dial(nil)
	if err != nil {
		return resolution{}, fmt.Errorf("netlink: dial controller: %w", err)
	}
	defer conn.Close()

	fam, err := conn.Family.Get(family)
	if err != nil {
		return resolution{}, fmt.Errorf("netlink: resolve family %q: %w", family, err)
	}
	for _, g := range fam.Groups {
		if g.Name == group {
			return resolution{FamilyID: fam.ID, GroupID: g.ID}, nil
		}
	}
	return resolution{}, fmt.Errorf("netlink: family %q has no multicast group %q", family, group)
}
