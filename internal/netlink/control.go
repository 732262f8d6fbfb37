package netlink

import (
	"context"
	"time"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/telemetry"
	"golang.org/x/sys/unix"
)

const controlPollInterval = 200 * time.Millisecond

// ControlActor is C (spec §4.2): watches the generic-netlink controller's
// "notify" multicast group for registration/unregistration of the
// configured family, and emits exactly one Reconnect command to D per
// Unregistered -> Registered transition.
type ControlActor struct {
	family string
	out    chan<- Command
	log    *logging.Logger
	metrics *telemetry.Metrics

	dial    func() (controlSocket, error)
	connect func() (controlSocket, uint32, error)

	registered bool
}

// controlSocket is the subset of genetlink.Conn C needs; a distinct,
// narrower interface from D's socket since C consumes already-decoded
// genetlink.Message values (it only inspects small control attributes, not
// a raw multicast payload).
type controlSocket interface {
	joinGroup(group uint32) error
	receive(deadline time.Time) ([]genetlink.Message, error)
	close() error
}

type realControlSocket struct {
	conn *genetlink.Conn
}

func dialControlSocket() (controlSocket, error) {
	conn, err := genetlink.Dial(nil)
	if err != nil {
		return nil, err
	}
	return &realControlSocket{conn: conn}, nil
}

func (s *realControlSocket) joinGroup(group uint32) error {
	return s.conn.JoinGroup(group)
}

func (s *realControlSocket) close() error {
	return s.conn.Close()
}

func (s *realControlSocket) receive(deadline time.Time) ([]genetlink.Message, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return s.conn.Receive()
}

// NewControlActor builds C for the given family name, sending Reconnect
// commands on out.
func NewControlActor(family string, out chan<- Command, log *logging.Logger, metrics *telemetry.Metrics) *ControlActor {
	c := &ControlActor{family: family, out: out, log: log, metrics: metrics, dial: dialControlSocket}
	c.connect = c.connectReal
	return c
}

// Run watches controller notifications until ctx is cancelled.
func (c *ControlActor) Run(ctx context.Context) {
	sock, groupID, err := c.connect()
	if err != nil {
		c.log.Warn("control-netlink: failed to join controller notify group, family registration changes will not be observed", "error", err.Error())
		return
	}
	defer sock.close()
	_ = groupID

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := sock.receive(time.Now().Add(controlPollInterval))
		if err != nil {
			if nerr, ok := err.(interface{ Timeout() bool }); ok && nerr.Timeout() {
				continue
			}
			c.log.Warn("control-netlink: receive error", "error", err.Error())
			continue
		}
		for _, m := range msgs {
			c.handle(m)
		}
	}
}

func (c *ControlActor) connectReal() (controlSocket, uint32, error) {
	r, err := resolve("nlctrl", "notify")
	if err != nil {
		return nil, 0, err
	}
	sock, err := c.dial()
	if err != nil {
		return nil, 0, err
	}
	if err := sock.joinGroup(r.GroupID); err != nil {
		_ = sock.close()
		return nil, 0, err
	}
	return sock, r.GroupID, nil
}

// handle inspects one controller notification and emits a Reconnect the
// moment the configured family transitions from unregistered to registered.
func (c *ControlActor) handle(m genetlink.Message) {
	switch m.Header.Command {
	case unix.CTRL_CMD_NEWFAMILY:
		name, ok := familyName(m.Data)
		if !ok || name != c.family {
			return
		}
		c.metrics.FamilyRegistrations.Inc()
		if !c.registered {
			c.registered = true
			c.log.Info("control-netlink: family registered, reconnecting data socket", "family", c.family)
			c.out <- Command{Kind: CmdReconnect}
		}
	case unix.CTRL_CMD_DELFAMILY:
		name, ok := familyName(m.Data)
		if !ok || name != c.family {
			return
		}
		c.registered = false
		c.log.Warn("control-netlink: family unregistered", "family", c.family)
	}
}

// familyName extracts CTRL_ATTR_FAMILY_NAME from a controller notification's
// attribute blob.
func familyName(data []byte) (string, bool) {
	ad, err := netlink.NewAttributeDecoder(data)
	if err != nil {
		return "", false
	}
	for ad.Next() {
		if ad.Type() == unix.CTRL_ATTR_FAMILY_NAME {
			return ad.String(), ad.Err() == nil
		}
	}
	return "", false
}
