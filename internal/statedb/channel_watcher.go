package statedb

import "sync"

// ChannelWatcher is the simplest Watcher: a caller-fed channel of Raw
// publications. It is what a real swss/redis state-database client would
// sit behind (spec §1: the state-database client library is an external
// collaborator, out of scope here); tests and the supplemented "feed a
// fixture" path both use it directly.
type ChannelWatcher struct {
	ch       chan Raw
	closeOnce sync.Once
}

// NewChannelWatcher returns a watcher backed by a channel of the given
// capacity (spec §5 default template-queue capacity is 10).
func NewChannelWatcher(capacity int) *ChannelWatcher {
	return &ChannelWatcher{ch: make(chan Raw, capacity)}
}

// Publish pushes one raw template publication. It blocks if the channel is
// full, providing the same backpressure semantics as every other inter-actor
// queue in the pipeline.
func (w *ChannelWatcher) Publish(raw Raw) {
	w.ch <- raw
}

func (w *ChannelWatcher) Updates() <-chan Raw { return w.ch }

func (w *ChannelWatcher) Close() error {
	w.closeOnce.Do(func() { close(w.ch) })
	return nil
}
