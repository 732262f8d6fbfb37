package reporter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sonic-net/countersyncd/internal/sai"
	"github.com/stretchr/testify/require"
)

func TestConsoleReporterDetailedReportAndReset(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf, true, 0, time.Hour) // long interval: only the final report fires
	in := make(chan sai.Stats, 1)
	in <- sai.Stats{ObservationTimeNS: 42, Samples: []sai.Stat{
		{ObjectName: "Ethernet4", TypeID: 1, StatID: 2, Counter: 10},
		{ObjectName: "Ethernet0", TypeID: 1, StatID: 2, Counter: 20},
	}}
	close(in)

	c.Run(context.Background(), in)

	out := buf.String()
	require.Contains(t, out, "2 unique, 1 messages")
	// sorted by object_name: Ethernet0 before Ethernet4
	require.Less(t, strings.Index(out, "Ethernet0"), strings.Index(out, "Ethernet4"))

	c.mu.Lock()
	require.Equal(t, uint64(0), c.periodMessages)
	for _, st := range c.counters {
		require.Equal(t, uint32(0), st.PeriodUpdates)
	}
	c.mu.Unlock()
}

func TestConsoleReporterSummaryMode(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf, false, 0, time.Hour)
	in := make(chan sai.Stats, 1)
	in <- sai.Stats{ObservationTimeNS: 1, Samples: []sai.Stat{
		{ObjectName: "Ethernet0", TypeID: 1, StatID: 2, Counter: 10},
		{ObjectName: "Ethernet0", TypeID: 1, StatID: 3, Counter: 5},
	}}
	close(in)

	c.Run(context.Background(), in)

	out := buf.String()
	require.Contains(t, out, "sum=15")
	require.Contains(t, out, "types=1")
	require.Contains(t, out, "objects=1")
}

func TestConsoleReporterDetailCapTruncates(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf, true, 1, time.Hour)
	in := make(chan sai.Stats, 1)
	in <- sai.Stats{Samples: []sai.Stat{
		{ObjectName: "Ethernet0", TypeID: 1, StatID: 1, Counter: 1},
		{ObjectName: "Ethernet1", TypeID: 1, StatID: 1, Counter: 2},
	}}
	close(in)

	c.Run(context.Background(), in)

	out := buf.String()
	require.Contains(t, out, "Ethernet0")
	require.NotContains(t, out, "Ethernet1")
}

func TestConsoleReporterPeriodicTick(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf, false, 0, 20*time.Millisecond)
	in := make(chan sai.Stats)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	c.Run(ctx, in)

	require.GreaterOrEqual(t, strings.Count(buf.String(), "-- counters:"), 2)
}
