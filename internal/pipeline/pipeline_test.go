package pipeline

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/sonic-net/countersyncd/internal/config"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/statedb"
	"github.com/sonic-net/countersyncd/internal/telemetry"
	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	ch chan statedb.Raw
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{ch: make(chan statedb.Raw, 4)}
}

func (w *fakeWatcher) Updates() <-chan statedb.Raw { return w.ch }
func (w *fakeWatcher) Close() error                { close(w.ch); return nil }

func discardLogger() *logging.Logger {
	return logging.Build(io.Discard, "info", "simple")
}

func TestPipelineBuildsWithStatsDisabled(t *testing.T) {
	cfg := config.Config{
		Constants: config.Constants{GenlFamily: "sonic_stel", GenlMulticastGroup: "ipfix"},
		Flags: config.Flags{
			DataNetlinkCapacity:   4,
			StatsReporterCapacity: 4,
		},
	}
	w := newFakeWatcher()
	p, err := New(cfg, w, io.Discard, discardLogger(), telemetry.New())
	require.NoError(t, err)
	require.Nil(t, p.console)
	require.Nil(t, p.otlp)
}

func TestPipelineStartStopIsClean(t *testing.T) {
	cfg := config.Config{
		Constants: config.Constants{GenlFamily: "sonic_stel", GenlMulticastGroup: "ipfix"},
		Flags: config.Flags{
			DataNetlinkCapacity:   4,
			StatsReporterCapacity: 4,
			EnableStats:           true,
			StatsInterval:         time.Hour,
		},
	}
	var buf bytes.Buffer
	w := newFakeWatcher()
	p, err := New(cfg, w, &buf, discardLogger(), telemetry.New())
	require.NoError(t, err)
	require.NotNil(t, p.console)

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	// A final console report is always printed on shutdown.
	require.Contains(t, buf.String(), "unique")
}
