package netlink

import (
	"context"
	"errors"
	"time"

	"github.com/sonic-net/countersyncd/internal/ipfix"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/telemetry"
)

const (
	// maxLocalReconnectAttempts bounds how many times D tries to rebuild its
	// own socket before giving up and waiting for the next externally
	// triggered Reconnect command (spec §4.1 E6).
	maxLocalReconnectAttempts = 3
	// healthTimeout is how long D tolerates a socket that polls clean
	// (no error, no data) before treating it as unhealthy and forcing a
	// reconnect on the next poll (spec §4.1 E6).
	healthTimeout = 10 * time.Second
	// pollInterval bounds how long a single receive() call blocks, so the
	// command queue is never starved by a quiet multicast group.
	pollInterval = 10 * time.Millisecond
	localReconnectBackoff = 200 * time.Millisecond
)

// DataActor is D (spec §4.1): owns the multicast data socket, forwards
// extracted IPFIX payloads to every registered recipient, and never drops a
// payload it managed to receive — a full recipient channel suspends the
// receive loop rather than discarding data.
type DataActor struct {
	Commands <-chan Command

	log     *logging.Logger
	metrics *telemetry.Metrics
	dial    func(family, group string) (socket, error)

	family string
	group  string

	recipients []chan<- []byte

	sock                   socket
	localReconnectAttempts int
	lastHealthy            time.Time
}

// NewDataActor builds D configured with an initial family/group; both can
// be replaced later by a CmdSocketConnect command.
func NewDataActor(cmds <-chan Command, family, group string, log *logging.Logger, metrics *telemetry.Metrics) *DataActor {
	return &DataActor{
		Commands: cmds,
		family:   family,
		group:    group,
		log:      log,
		metrics:  metrics,
		dial:     dialAndJoin,
	}
}

// AddRecipient registers a channel to receive extracted IPFIX payloads.
// Must be called before Run starts (spec §4.1 "add_recipient(sender)").
func (d *DataActor) AddRecipient(ch chan<- []byte) {
	d.recipients = append(d.recipients, ch)
}

func dialAndJoin(family, group string) (socket, error) {
	r, err := resolve(family, group)
	if err != nil {
		return nil, err
	}
	sock, err := dialSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.joinGroup(r.GroupID); err != nil {
		_ = sock.close()
		return nil, err
	}
	_ = r.FamilyID // resolved for parity with the controller's view; not needed to receive multicast
	return sock, nil
}

// Run drives D until ctx is cancelled or a CmdClose command arrives.
func (d *DataActor) Run(ctx context.Context) {
	d.connectWithRetry()
	if d.lastHealthy.IsZero() {
		d.lastHealthy = time.Now()
	}

	for {
		select {
		case <-ctx.Done():
			d.teardown()
			return
		case cmd := <-d.Commands:
			if d.handleCommand(cmd) {
				d.teardown()
				return
			}
			continue
		default:
		}

		if d.sock == nil {
			d.connectWithRetry()
			if d.sock == nil {
				time.Sleep(localReconnectBackoff)
				continue
			}
		}

		raw, err := d.sock.receive(time.Now().Add(pollInterval))
		switch {
		case err == nil:
			d.lastHealthy = time.Now()
			d.localReconnectAttempts = 0
			payload, perr := ipfix.ExtractPayload(raw)
			if perr != nil {
				d.log.Warn("dropping malformed netlink datagram", "error", perr.Error())
				continue
			}
			d.dispatch(payload)
		case errors.Is(err, ErrWouldBlock):
			if time.Since(d.lastHealthy) > healthTimeout {
				d.log.Warn("data-netlink socket unhealthy, forcing reconnect", "idle", time.Since(d.lastHealthy).String())
				d.metrics.Reconnects.Inc()
				d.teardown()
			}
		case errors.Is(err, ErrENOBUFS):
			d.metrics.ENOBUFSEvents.Inc()
			d.log.Warn("data-netlink receive buffer overrun, continuing")
			d.lastHealthy = time.Now()
		default:
			d.metrics.SocketErrors.Inc()
			d.log.Warn("data-netlink socket error, reconnecting", "error", err.Error())
			d.teardown()
		}
	}
}

// dispatch fans payload out to every recipient. Each send blocks: a slow
// or stalled downstream stage suspends D rather than dropping data (spec
// §4.1 "never drop").
func (d *DataActor) dispatch(payload []byte) {
	for _, ch := range d.recipients {
		ch <- payload
	}
}

// handleCommand applies cmd and reports whether D should stop.
func (d *DataActor) handleCommand(cmd Command) (stop bool) {
	switch cmd.Kind {
	case CmdSocketConnect:
		d.family, d.group = cmd.Family, cmd.Group
		d.localReconnectAttempts = 0
		d.teardown()
	case CmdReconnect:
		d.metrics.Reconnects.Inc()
		d.localReconnectAttempts = 0
		d.teardown()
	case CmdClose:
		return true
	}
	return false
}

func (d *DataActor) teardown() {
	if d.sock != nil {
		_ = d.sock.close()
		d.sock = nil
	}
}

// connectWithRetry dials until it succeeds or localReconnectAttempts reaches
// maxLocalReconnectAttempts. Once the limit is reached it makes no further
// attempt: D keeps running with sock == nil, sleeping localReconnectBackoff
// per loop iteration, until a CmdReconnect or CmdSocketConnect resets the
// counter, rather than exiting the process (a single unreachable kernel
// module must not take the whole daemon down).
func (d *DataActor) connectWithRetry() {
	for d.localReconnectAttempts < maxLocalReconnectAttempts {
		sock, err := d.dial(d.family, d.group)
		d.localReconnectAttempts++
		if err == nil {
			d.sock = sock
			return
		}
		d.metrics.SocketErrors.Inc()
		d.log.Warn("data-netlink connect attempt failed", "attempt", d.localReconnectAttempts, "family", d.family, "group", d.group, "error", err.Error())
	}
}
