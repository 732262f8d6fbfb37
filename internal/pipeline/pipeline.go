// Package pipeline wires the five actors (spec §2) into the linear-with-
// sideband topology the spec describes, owning every inter-actor channel.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sonic-net/countersyncd/internal/config"
	"github.com/sonic-net/countersyncd/internal/decoder"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/netlink"
	"github.com/sonic-net/countersyncd/internal/reporter"
	"github.com/sonic-net/countersyncd/internal/sai"
	"github.com/sonic-net/countersyncd/internal/statedb"
	"github.com/sonic-net/countersyncd/internal/telemetry"
)

const (
	// templateQueueCapacity and commandQueueCapacity are the spec §5
	// defaults for the two small sideband queues; unlike the payload and
	// sample-batch queues they are not exposed as CLI flags.
	templateQueueCapacity = 10
	commandQueueCapacity  = 10

	defaultStatsInterval = 10 * time.Second
)

// Pipeline owns every actor and the channels between them, grounded on the
// teacher's NewPipeline/startStages/Stop shape
// (engine/internal/pipeline/pipeline.go): one goroutine per actor, a
// sync.WaitGroup tracking them, and an explicit Stop that cancels context
// and waits for every actor to return before releasing resources.
type Pipeline struct {
	control *netlink.ControlActor
	data    *netlink.DataActor
	watcher *statedb.WatcherActor
	decode  *decoder.Decoder
	console *reporter.ConsoleReporter
	otlp    *reporter.OTLPReporter

	samples chan sai.Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds every actor and channel but does not start any goroutines.
// dbWatcher is the external state-database subscription (spec §6); it is
// supplied by the caller (cmd/countersyncd wires statedb.NewNullWatcher,
// tests wire a fixture). consoleOut is where the console reporter writes when stats are
// enabled and no OTLP endpoint is configured; it is ignored otherwise.
func New(cfg config.Config, dbWatcher statedb.Watcher, consoleOut io.Writer, log *logging.Logger, metrics *telemetry.Metrics) (*Pipeline, error) {
	commands := make(chan netlink.Command, commandQueueCapacity)
	templates := make(chan statedb.Update, templateQueueCapacity)
	payloads := make(chan []byte, cfg.Flags.DataNetlinkCapacity)
	samples := make(chan sai.Stats, cfg.Flags.StatsReporterCapacity)

	p := &Pipeline{
		control: netlink.NewControlActor(cfg.Constants.GenlFamily, commands, log.With("actor", "control-netlink"), metrics),
		data:    netlink.NewDataActor(commands, cfg.Constants.GenlFamily, cfg.Constants.GenlMulticastGroup, log.With("actor", "data-netlink"), metrics),
		watcher: statedb.NewWatcherActor(dbWatcher, templates, log.With("actor", "statedb-watcher")),
		decode:  decoder.New(templates, payloads, log.With("actor", "decoder"), metrics),
		samples: samples,
	}
	p.data.AddRecipient(payloads)

	if cfg.Flags.EnableStats {
		// Only register the sample-batch recipient when a reporter exists
		// to drain it: an unread recipient channel would eventually block
		// the decoder once its buffer filled, for no observer's benefit.
		p.decode.AddRecipient(samples)
		if cfg.Flags.OTLPEndpoint != "" {
			otlp, err := reporter.NewOTLPReporter(cfg.Flags.OTLPEndpoint, log.With("actor", "reporter-otlp"), metrics)
			if err != nil {
				return nil, err
			}
			p.otlp = otlp
		} else {
			interval := cfg.Flags.StatsInterval
			if interval <= 0 {
				interval = defaultStatsInterval
			}
			p.console = reporter.NewConsoleReporter(consoleOut, cfg.Flags.DetailedStats, cfg.Flags.MaxStatsPerReport, interval)
		}
	}

	return p, nil
}

// Start launches every actor's goroutine under a context derived from ctx.
func (p *Pipeline) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.spawn(p.control.Run)
	p.spawn(p.data.Run)
	p.spawn(p.watcher.Run)
	p.spawn(p.decode.Run)
	if p.otlp != nil {
		p.spawn(p.runOTLPReporter)
	}
	if p.console != nil {
		p.spawn(func(ctx context.Context) { p.console.Run(ctx, p.samples) })
	}
}

func (p *Pipeline) spawn(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// runOTLPReporter drains the sample channel into OTLP exports until ctx is
// cancelled or the channel closes.
func (p *Pipeline) runOTLPReporter(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-p.samples:
			if !ok {
				return
			}
			p.otlp.Export(ctx, batch)
		}
	}
}

// Stop cancels every actor and waits for them to return, then releases any
// held resources (the OTLP gRPC connection).
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if p.otlp != nil {
		_ = p.otlp.Close()
	}
}
