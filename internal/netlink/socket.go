package netlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by socket.receive when no datagram was
// available before the poll deadline elapsed (spec §4.1 E5/E6: this is the
// benign, expected case on every poll that finds nothing and must never be
// logged or counted as an error).
var ErrWouldBlock = errors.New("netlink: would block")

// socket is the minimal surface D needs from a multicast generic-netlink
// connection. Mocked in tests the way the teacher mocks external I/O
// boundaries (engine/internal/ratelimit's Clock abstraction) and the way
// the Rust original's data_netlink actor is tested against a MockSocket.
type socket interface {
	joinGroup(group uint32) error
	receive(deadline time.Time) ([]byte, error)
	close() error
}

// genlSocket is D's real socket, a raw NETLINK_GENERIC connection. D
// deliberately uses the raw *netlink.Conn rather than *genetlink.Conn (C, in
// control.go, does use *genetlink.Conn): the
// generic-netlink header of multicast data messages is not itself the
// sender's concern (data messages here are injected by a kernel module that
// places a bare IPFIX stream after it), so stripping that 4-byte header is
// this package's job, matching the wire contract internal/ipfix.ExtractPayload
// implements and tests against directly.
type genlSocket struct {
	conn *netlink.Conn
}

func dialSocket() (*genlSocket, error) {
	conn, err := netlink.Dial(unix.NETLINK_GENERIC, nil)
	if err != nil {
		return nil, fmt.Errorf("netlink: dial: %w", err)
	}
	return &genlSocket{conn: conn}, nil
}

func (s *genlSocket) joinGroup(group uint32) error {
	return s.conn.JoinGroup(group)
}

func (s *genlSocket) close() error {
	return s.conn.Close()
}

// receive polls for a single datagram until deadline, returning the raw
// wire bytes (netlink header + generic-netlink header + IPFIX payload)
// exactly as internal/ipfix.ExtractPayload expects them; header stripping
// is the caller's job (spec §4.1 "payload extraction strips 16 + 4 bytes").
func (s *genlSocket) receive(deadline time.Time) ([]byte, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("netlink: set deadline: %w", err)
	}
	msgs, err := s.conn.Receive()
	if err != nil {
		if nerr, ok := err.(interface{ Timeout() bool }); ok && nerr.Timeout() {
			return nil, ErrWouldBlock
		}
		if errors.Is(err, unix.ENOBUFS) {
			return nil, fmt.Errorf("%w: %w", ErrENOBUFS, err)
		}
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrWouldBlock
	}
	return rawDatagram(msgs[0]), nil
}

// ErrENOBUFS marks a receive-buffer-overrun error; classified separately
// from other socket errors because it means the kernel dropped datagrams
// under load, not that the socket itself is unusable (spec §4.1 E6 distinguishes
// it from a health-timeout-triggering error).
var ErrENOBUFS = errors.New("netlink: receive buffer overrun (ENOBUFS)")

// rawDatagram reconstructs the 16-byte netlink message header mdlayher
// already parsed out of msg.Header, ahead of the still-undecoded generic-
// netlink header and payload in msg.Data, so the full datagram can be run
// through the one documented, tested header-stripping routine
// (internal/ipfix.ExtractPayload) instead of duplicating its bounds checks
// here.
func rawDatagram(msg netlink.Message) []byte {
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint32(hdr[0:4], msg.Header.Length)
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(msg.Header.Type))
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(msg.Header.Flags))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(msg.Header.Sequence))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(msg.Header.PID))
	return append(hdr, msg.Data...)
}
