package reporter

import (
	"io"
	"testing"

	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/sonic-net/countersyncd/internal/sai"
	"github.com/sonic-net/countersyncd/internal/telemetry"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricpb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logging.Logger {
	return logging.Build(io.Discard, "info", "simple")
}

func TestNewOTLPReporterBuildsFixedResourceAndScope(t *testing.T) {
	r, err := NewOTLPReporter("127.0.0.1:4317", discardLogger(), telemetry.New())
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, serviceName, r.scope.Name)
	require.Len(t, r.resource.Attributes, 1)
	require.Equal(t, "service.name", r.resource.Attributes[0].Key)
	require.Equal(t, serviceName, r.resource.Attributes[0].GetValue().GetStringValue())
}

func TestBuildMetricShape(t *testing.T) {
	r, err := NewOTLPReporter("127.0.0.1:4317", discardLogger(), telemetry.New())
	require.NoError(t, err)
	defer r.Close()

	m := r.buildMetric(sai.Stat{ObjectName: "Ethernet0", TypeID: 1, StatID: 2, Counter: 1000}, 777)
	require.Equal(t, "sai_counter_type_1_stat_2", m.Name)
	require.Equal(t, "1", m.Unit)
	require.Contains(t, m.Description, "Ethernet0")

	gauge, ok := m.Data.(*metricpb.Metric_Gauge)
	require.True(t, ok)
	require.Len(t, gauge.Gauge.DataPoints, 1)
	dp := gauge.Gauge.DataPoints[0]
	require.Equal(t, uint64(777), dp.TimeUnixNano)
	require.Equal(t, int64(1000), dp.GetAsInt())

	attrs := make(map[string]*commonpb.AnyValue)
	for _, kv := range dp.Attributes {
		attrs[kv.Key] = kv.Value
	}
	require.Equal(t, "Ethernet0", attrs["object_name"].GetStringValue())
	require.Equal(t, int64(1), attrs["sai_type_id"].GetIntValue())
	require.Equal(t, int64(2), attrs["sai_stat_id"].GetIntValue())
}
