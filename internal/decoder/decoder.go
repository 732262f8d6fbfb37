// Package decoder implements the IPFIX Decoder actor (I), the hardest
// component in the pipeline: it owns the active template map and turns raw
// IPFIX payloads into batches of decoded SAI counter samples.
package decoder

import (
	"context"
	"encoding/binary"

	"github.com/sonic-net/countersyncd/internal/ipfix"
	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/sai"
	"github.com/sonic-net/countersyncd/internal/statedb"
	"github.com/sonic-net/countersyncd/internal/telemetry"
)

// Decoder is I (spec §4.4). It consumes template updates and raw payloads
// concurrently off two independent input channels and emits sai.Stats
// batches to every registered recipient.
type Decoder struct {
	store     *statedb.Store
	templates <-chan statedb.Update
	payloads  <-chan []byte

	recipients []chan<- sai.Stats

	log     *logging.Logger
	metrics *telemetry.Metrics
}

// New builds I around a fresh template store.
func New(templates <-chan statedb.Update, payloads <-chan []byte, log *logging.Logger, metrics *telemetry.Metrics) *Decoder {
	return &Decoder{
		store:     statedb.NewStore(),
		templates: templates,
		payloads:  payloads,
		log:       log,
		metrics:   metrics,
	}
}

// AddRecipient registers a channel to receive decoded batches (spec §4.4
// "add_recipient(sender)"). Must be called before Run starts.
func (d *Decoder) AddRecipient(ch chan<- sai.Stats) {
	d.recipients = append(d.recipients, ch)
}

// Run services both input channels until ctx is cancelled or payloads
// closes. Template application and payload decoding never block one
// another beyond the ordering select imposes on a single goroutine: neither
// operation does I/O, so a single-goroutine select is equivalent in
// practice to two concurrently scheduled consumers, and avoids the
// synchronization internal/statedb.Store would otherwise need between two
// writer goroutines racing template replacement against lookups mid-decode.
func (d *Decoder) Run(ctx context.Context) {
	d.log.Info("decoder started")
	defer d.log.Info("decoder stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-d.templates:
			if !ok {
				d.templates = nil
				continue
			}
			d.store.Apply(upd)
		case payload, ok := <-d.payloads:
			if !ok {
				return
			}
			d.handlePayload(payload)
		}
	}
}

func (d *Decoder) handlePayload(payload []byte) {
	header, err := ipfix.DecodeMessageHeader(payload)
	if err != nil {
		d.metrics.MalformedSets.Inc()
		d.log.Warn("dropping message with malformed header", "error", err.Error())
		return
	}
	sets, err := ipfix.WalkSets(payload[ipfix.MessageHeaderLen:])
	if err != nil {
		d.metrics.MalformedSets.Inc()
		d.log.Warn("dropping message with malformed set framing", "error", err.Error())
		return
	}

	var samples []sai.Stat
	var observationTimeNS uint64
	for _, set := range sets {
		if set.Header.SetID == ipfix.TemplateSetID {
			// Template authority belongs to S (spec §4.3); an inline
			// template set riding the data stream has no bearing on the
			// active template map here.
			continue
		}
		entry, ok := d.store.Lookup(set.Header.SetID)
		if !ok {
			d.metrics.SetsWithoutTemplate.Inc()
			continue
		}
		records, err := ipfix.DecodeDataSet(set.Body, entry.Template)
		if err != nil {
			d.metrics.MalformedSets.Inc()
			d.log.Warn("dropping malformed data set", "set_id", set.Header.SetID, "error", err.Error())
			continue
		}
		for _, record := range records {
			d.decodeRecord(record, entry.ObjectNames, &samples, &observationTimeNS)
		}
	}

	if observationTimeNS == 0 {
		observationTimeNS = uint64(header.ExportTime) * 1_000_000_000
	}

	d.metrics.BatchesDecoded.Inc()
	d.metrics.SamplesDecoded.Add(float64(len(samples)))
	batch := sai.Stats{ObservationTimeNS: observationTimeNS, Samples: samples}
	for _, ch := range d.recipients {
		ch <- batch
	}
}

// decodeRecord walks one record's fields in template order, appending every
// resolvable sample to *samples and updating *observationTimeNS on an IE 325
// field (spec §4.4 "Field interpretation").
func (d *Decoder) decodeRecord(record ipfix.Record, objectNames []string, samples *[]sai.Stat, observationTimeNS *uint64) {
	for _, field := range record.Fields {
		if field.Spec.IsObservationTime() {
			*observationTimeNS = binary.BigEndian.Uint64(field.Value)
			continue
		}
		if !field.Spec.HasEnterprise {
			continue
		}
		counter, ok := decodeCounterValue(field.Value)
		if !ok {
			d.metrics.InvalidFieldValues.Inc()
			continue
		}
		label := int(field.Spec.ElementID)
		idx := label - 1
		if idx < 0 || idx >= len(objectNames) {
			d.metrics.UnresolvableLabels.Inc()
			continue
		}
		typeID, statID := sai.DecodeEnterpriseNumber(field.Spec.Enterprise)
		*samples = append(*samples, sai.Stat{
			ObjectName: objectNames[idx],
			TypeID:     typeID,
			StatID:     statID,
			Counter:    counter,
		})
	}
}

// decodeCounterValue accepts the four field lengths spec §4.4 allows for a
// counter value; any other length is rejected.
func decodeCounterValue(b []byte) (uint64, bool) {
	switch len(b) {
	case 1:
		return uint64(b[0]), true
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), true
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), true
	case 8:
		return binary.BigEndian.Uint64(b), true
	default:
		return 0, false
	}
}
