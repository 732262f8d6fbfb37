// Package telemetry exposes the daemon's self-observability counters: drop
// categories, reconnect counts, and export outcomes (spec §7, §8), via a
// Prometheus registry and optional HTTP exposition. This is not the spec's
// OTLP sample export (internal/reporter handles that); it is the operator-
// facing "is this daemon healthy" surface, grounded on the teacher's
// PrometheusProvider (engine/telemetry/metrics/prometheus.go).
package telemetry

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the full set of self-observability instruments the pipeline's
// actors update as they run.
type Metrics struct {
	registry *prom.Registry

	// Decoder drop counters (spec §4.4, §8).
	SetsWithoutTemplate prom.Counter
	MalformedSets       prom.Counter
	UnresolvableLabels  prom.Counter
	InvalidFieldValues  prom.Counter
	// InvalidTemplates is registered but nothing increments it:
	// statedb.WatcherActor counts decode failures in its own
	// InvalidTemplates field instead.
	InvalidTemplates    prom.Counter
	SamplesDecoded      prom.Counter
	BatchesDecoded      prom.Counter

	// Netlink actor counters (spec §4.1, §4.2).
	Reconnects        prom.Counter
	SocketErrors      prom.Counter
	ENOBUFSEvents     prom.Counter
	FamilyRegistrations prom.Counter

	// Reporter counters (spec §4.5).
	ExportsPerformed prom.Counter
	ExportFailures   prom.Counter
}

// New builds a fresh Metrics instance registered against its own registry,
// mirroring PrometheusProvider's lazily-registered CounterVec idiom but with
// fixed, known-up-front metric names since the decoder's drop categories are
// a closed set (unlike the teacher's dynamically-named crawl metrics).
func New() *Metrics {
	reg := prom.NewRegistry()
	counter := func(name, help string) prom.Counter {
		c := prom.NewCounter(prom.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}
	return &Metrics{
		registry:            reg,
		SetsWithoutTemplate: counter("countersyncd_sets_without_template_total", "IPFIX sets dropped because no active template matched their set id"),
		MalformedSets:       counter("countersyncd_malformed_sets_total", "IPFIX messages or sets dropped as malformed: a bad message header, bad set framing, or a set body length that is not a positive multiple of the template record size"),
		UnresolvableLabels:  counter("countersyncd_unresolvable_labels_total", "samples dropped because their information element id had no entry in the object-name table"),
		InvalidFieldValues:  counter("countersyncd_invalid_field_values_total", "samples dropped because their field value length was not one of 1, 2, 4, or 8 bytes"),
		InvalidTemplates:    counter("countersyncd_invalid_templates_total", "template blobs from the state database that failed to decode"),
		SamplesDecoded:      counter("countersyncd_samples_decoded_total", "samples successfully decoded and emitted in a batch"),
		BatchesDecoded:      counter("countersyncd_batches_decoded_total", "sample batches emitted, one per decoded payload"),
		Reconnects:          counter("countersyncd_netlink_reconnects_total", "data-netlink socket reconnects performed"),
		SocketErrors:        counter("countersyncd_netlink_socket_errors_total", "non-benign data-netlink socket errors observed"),
		ENOBUFSEvents:       counter("countersyncd_netlink_enobufs_total", "ENOBUFS (receive-buffer-full) events observed on the data-netlink socket"),
		FamilyRegistrations: counter("countersyncd_family_registrations_total", "generic-netlink family (re)registration events observed by the control-netlink actor"),
		ExportsPerformed:    counter("countersyncd_exports_total", "OTLP export calls that completed without error"),
		ExportFailures:      counter("countersyncd_export_failures_total", "OTLP export calls that returned an error"),
	}
}

// Handler returns the /metrics HTTP handler (spec SPEC_FULL.md §B.4: optional
// --metrics-addr, off by default).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
