package netlink

import (
	"context"
	"testing"
	"time"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/sonic-net/countersyncd/internal/telemetry"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type mockControlSocket struct {
	batches [][]genetlink.Message
}

func (s *mockControlSocket) joinGroup(uint32) error { return nil }
func (s *mockControlSocket) close() error           { return nil }
func (s *mockControlSocket) receive(time.Time) ([]genetlink.Message, error) {
	if len(s.batches) == 0 {
		return nil, fakeTimeout{}
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func encodeFamilyNameAttr(name string) []byte {
	ae := netlink.NewAttributeEncoder()
	ae.String(unix.CTRL_ATTR_FAMILY_NAME, name)
	b, err := ae.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

func TestControlActorEmitsReconnectOnRegistration(t *testing.T) {
	sock := &mockControlSocket{batches: [][]genetlink.Message{
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
	}}

	out := make(chan Command, 1)
	c := NewControlActor("sonic_stel", out, discardLogger(), telemetry.New())
	c.connect = func() (controlSocket, uint32, error) { return sock, 0, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	select {
	case cmd := <-out:
		require.Equal(t, CmdReconnect, cmd.Kind)
	default:
		t.Fatal("expected a Reconnect command")
	}
}

func TestControlActorIgnoresOtherFamilies(t *testing.T) {
	sock := &mockControlSocket{batches: [][]genetlink.Message{
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("unrelated_family")}},
	}}

	out := make(chan Command, 1)
	c := NewControlActor("sonic_stel", out, discardLogger(), telemetry.New())
	c.connect = func() (controlSocket, uint32, error) { return sock, 0, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	select {
	case cmd := <-out:
		t.Fatalf("unexpected command for unrelated family: %v", cmd)
	default:
	}
}

func TestControlActorOnlyReconnectsOnceAcrossRepeatedRegistration(t *testing.T) {
	sock := &mockControlSocket{batches: [][]genetlink.Message{
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
	}}

	out := make(chan Command, 2)
	c := NewControlActor("sonic_stel", out, discardLogger(), telemetry.New())
	c.connect = func() (controlSocket, uint32, error) { return sock, 0, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	require.Len(t, out, 1)
}

func TestControlActorDeregistrationAllowsFutureReconnect(t *testing.T) {
	sock := &mockControlSocket{batches: [][]genetlink.Message{
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_DELFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
		{{Header: genetlink.Header{Command: unix.CTRL_CMD_NEWFAMILY}, Data: encodeFamilyNameAttr("sonic_stel")}},
	}}

	out := make(chan Command, 2)
	c := NewControlActor("sonic_stel", out, discardLogger(), telemetry.New())
	c.connect = func() (controlSocket, uint32, error) { return sock, 0, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	require.Len(t, out, 2)
}
