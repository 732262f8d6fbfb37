package statedb

import (
	"context"

	"github.com/sonic-net/countersyncd/internal/ipfix"
	"github.com/sonic-net/countersyncd/internal/logging"
)

// WatcherActor is the State-DB Watcher (S, spec §4.3): it subscribes through
// a Watcher, decodes each raw template blob as an IPFIX Template Set, and
// publishes decoded Updates to a recipient channel (normally the Decoder's
// template-update input).
type WatcherActor struct {
	watcher Watcher
	out     chan<- Update
	log     *logging.Logger

	// InvalidTemplates counts blobs that failed to decode; the previous
	// template for that key remains active (spec §4.3).
	InvalidTemplates uint64
}

// NewWatcherActor builds S. out is the channel I reads template updates
// from; it is never closed by this actor (spec §5: closure is a shutdown
// signal driven by whoever owns the channel).
func NewWatcherActor(watcher Watcher, out chan<- Update, log *logging.Logger) *WatcherActor {
	return &WatcherActor{watcher: watcher, out: out, log: log}
}

// Run drains the watcher's subscription until it closes or ctx is canceled.
func (a *WatcherActor) Run(ctx context.Context) {
	a.log.Info("statedb watcher started")
	defer a.log.Info("statedb watcher stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-a.watcher.Updates():
			if !ok {
				return
			}
			a.handle(ctx, raw)
		}
	}
}

func (a *WatcherActor) handle(ctx context.Context, raw Raw) {
	templates, err := ipfix.DecodeTemplateSet(raw.TemplateBlob)
	if err != nil {
		a.InvalidTemplates++
		a.log.Warn("invalid template blob, keeping previous template active",
			"publisher_key", raw.PublisherKey, "error", err.Error())
		return
	}
	for _, tmpl := range templates {
		update := Update{
			Key:   TemplateKey{PublisherKey: raw.PublisherKey, TemplateID: tmpl.TemplateID},
			Entry: Entry{Template: tmpl, ObjectNames: raw.ObjectNames},
		}
		select {
		case a.out <- update:
		case <-ctx.Done():
			return
		}
	}
}
