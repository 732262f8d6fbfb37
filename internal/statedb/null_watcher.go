package statedb

// NullWatcher is a Watcher that never delivers an update. The real
// state-database client (a swss/redis subscription) is an external
// collaborator per spec §1/§6 and out of this repository's scope; this
// stub is what cmd/countersyncd wires by default so the pipeline can start
// and run its other four actors without one configured.
type NullWatcher struct {
	ch chan Raw
}

// NewNullWatcher returns a Watcher whose Updates() channel never yields
// until Close is called, at which point it closes cleanly like a real
// subscription ending.
func NewNullWatcher() *NullWatcher {
	return &NullWatcher{ch: make(chan Raw)}
}

func (w *NullWatcher) Updates() <-chan Raw { return w.ch }

func (w *NullWatcher) Close() error {
	close(w.ch)
	return nil
}
