package reporter

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sonic-net/countersyncd/internal/sai"
)

// CounterKey identifies one counter's latest state across reporting periods
// (spec §4.5 console mode).
type CounterKey struct {
	ObjectName string
	TypeID     uint32
	StatID     uint32
}

type counterState struct {
	LatestValue         uint64
	LastObservationTime uint64
	PeriodUpdates       uint32
}

// ConsoleReporter is R in console mode (spec §4.5): periodically prints
// either a per-counter detail table or an aggregate summary to an injected
// io.Writer, grounded on the teacher's dependency-injected output pattern
// and the Rust original's stats_reporter.rs OutputWriter generic.
type ConsoleReporter struct {
	w                 io.Writer
	detailed          bool
	maxStatsPerReport uint32
	interval          time.Duration

	mu             sync.Mutex
	counters       map[CounterKey]*counterState
	periodMessages uint64
}

// NewConsoleReporter builds R in console mode. detailed selects the
// per-counter table; otherwise the aggregate summary is printed.
func NewConsoleReporter(w io.Writer, detailed bool, maxStatsPerReport uint32, interval time.Duration) *ConsoleReporter {
	return &ConsoleReporter{
		w:                 w,
		detailed:          detailed,
		maxStatsPerReport: maxStatsPerReport,
		interval:          interval,
		counters:          make(map[CounterKey]*counterState),
	}
}

// Run consumes batches from in until it closes or ctx is cancelled, printing
// a report every interval and a final report on either exit path.
func (c *ConsoleReporter) Run(ctx context.Context, in <-chan sai.Stats) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.report()
			return
		case batch, ok := <-in:
			if !ok {
				c.report()
				return
			}
			c.ingest(batch)
		case <-ticker.C:
			c.report()
		}
	}
}

func (c *ConsoleReporter) ingest(batch sai.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periodMessages++
	for _, s := range batch.Samples {
		key := CounterKey{ObjectName: s.ObjectName, TypeID: s.TypeID, StatID: s.StatID}
		st, ok := c.counters[key]
		if !ok {
			st = &counterState{}
			c.counters[key] = st
		}
		st.LatestValue = s.Counter
		st.LastObservationTime = batch.ObservationTimeNS
		st.PeriodUpdates++
	}
}

// report prints the current period's table or summary, then resets the
// per-period counters (latest values and observation times are retained).
func (c *ConsoleReporter) report() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detailed {
		c.writeDetailed()
	} else {
		c.writeSummary()
	}
	c.periodMessages = 0
	for _, st := range c.counters {
		st.PeriodUpdates = 0
	}
}

func (c *ConsoleReporter) writeDetailed() {
	fmt.Fprintf(c.w, "-- counters: %d unique, %d messages --\n", len(c.counters), c.periodMessages)
	keys := make([]CounterKey, 0, len(c.counters))
	for k := range c.counters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ObjectName != b.ObjectName {
			return a.ObjectName < b.ObjectName
		}
		if a.TypeID != b.TypeID {
			return a.TypeID < b.TypeID
		}
		return a.StatID < b.StatID
	})
	if c.maxStatsPerReport > 0 && uint32(len(keys)) > c.maxStatsPerReport {
		keys = keys[:c.maxStatsPerReport]
	}
	for _, k := range keys {
		st := c.counters[k]
		fmt.Fprintf(c.w, "%-24s type=%-6d stat=%-6d value=%-12d updates=%d observed_at=%d\n",
			k.ObjectName, k.TypeID, k.StatID, st.LatestValue, st.PeriodUpdates, st.LastObservationTime)
	}
}

func (c *ConsoleReporter) writeSummary() {
	var sum uint64
	types := make(map[uint32]struct{})
	objects := make(map[string]struct{})
	for k, st := range c.counters {
		sum += st.LatestValue
		types[k.TypeID] = struct{}{}
		objects[k.ObjectName] = struct{}{}
	}
	rate := float64(c.periodMessages) / c.interval.Seconds()
	fmt.Fprintf(c.w, "-- counters: %d unique, %d messages, sum=%d, types=%d, objects=%d, %.2f msg/s --\n",
		len(c.counters), c.periodMessages, sum, len(types), len(objects), rate)
}
