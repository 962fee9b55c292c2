package promadapters_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/auditstore-go/auditstore/promadapters"
	"github.com/AntonStoeckl/auditstore-go/testutil/observability/testdoubles"
)

func newCollector(t *testing.T, options ...promadapters.Option) (*promadapters.MetricsCollector, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	collector, err := promadapters.NewMetricsCollector(append([]promadapters.Option{promadapters.WithRegisterer(registry)}, options...)...)
	require.NoError(t, err)

	return collector, registry
}

func gatherFamily(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}

	t.Fatalf("metric family %s not found", name)

	return nil
}

func Test_NewMetricsCollector_RejectsNilRegisterer(t *testing.T) {
	collector, err := promadapters.NewMetricsCollector(promadapters.WithRegisterer(nil))

	assert.ErrorIs(t, err, promadapters.ErrNilRegisterer)
	assert.Nil(t, collector)
}

func Test_MetricsCollector_RecordDuration_ObservesSeconds(t *testing.T) {
	collector, registry := newCollector(t, promadapters.WithDurationBuckets(0.1, 0.2, 0.5))

	collector.RecordDuration(
		"auditstore_query_duration_seconds",
		150*time.Millisecond,
		map[string]string{"status": "success", "operation": "query_for_snapshots"},
	)

	family := gatherFamily(t, registry, "auditstore_query_duration_seconds")
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
	assert.Equal(t, "auditstore query duration", family.GetHelp())
	require.Len(t, family.GetMetric(), 1)

	histogram := family.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
	assert.InDelta(t, 0.15, histogram.GetSampleSum(), 0.001)
	require.Len(t, histogram.GetBucket(), 3)
	assert.Equal(t, uint64(0), histogram.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(1), histogram.GetBucket()[1].GetCumulativeCount())

	labels := family.GetMetric()[0].GetLabel()
	require.Len(t, labels, 2)
	assert.Equal(t, "operation", labels[0].GetName())
	assert.Equal(t, "query_for_snapshots", labels[0].GetValue())
	assert.Equal(t, "status", labels[1].GetName())
	assert.Equal(t, "success", labels[1].GetValue())
}

func Test_MetricsCollector_IncrementCounter_Accumulates(t *testing.T) {
	collector, registry := newCollector(t)

	collector.IncrementCounter("auditstore_cache_hits_total", map[string]string{"operation": "latest"})
	collector.IncrementCounter("auditstore_cache_hits_total", map[string]string{"operation": "latest"})
	collector.IncrementCounter("auditstore_cache_hits_total", map[string]string{"operation": "snapshot"})

	expected := `
# HELP auditstore_cache_hits_total auditstore cache hits
# TYPE auditstore_cache_hits_total counter
auditstore_cache_hits_total{operation="latest"} 2
auditstore_cache_hits_total{operation="snapshot"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "auditstore_cache_hits_total"))
}

func Test_MetricsCollector_RecordValue_ObservesResultSizes(t *testing.T) {
	collector, registry := newCollector(t)
	labels := map[string]string{"operation": "query", "selection": "state_history"}

	collector.RecordValue("auditstore_repository_snapshots_queried", 3, labels)
	collector.RecordValue("auditstore_repository_snapshots_queried", 7, labels)

	family := gatherFamily(t, registry, "auditstore_repository_snapshots_queried")
	histogram := family.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 10.0, histogram.GetSampleSum(), 0.0001)
	assert.Len(t, histogram.GetBucket(), len(promadapters.DefaultValueBuckets))
}

func Test_MetricsCollector_FirstMeasurement_FixesTheLabelNames(t *testing.T) {
	logHandler := testdoubles.NewLogHandlerSpy(false)
	collector, registry := newCollector(t, promadapters.WithLogger(slog.New(logHandler)))
	metricName := "auditstore_repository_database_errors_total"

	collector.IncrementCounter(metricName, map[string]string{"operation": "query", "selection": "latest"})
	collector.IncrementCounter(metricName, map[string]string{"operation": "persist"})
	collector.IncrementCounter(metricName, map[string]string{"operation": "persist", "error_type": "scan"})
	collector.IncrementCounter(metricName, map[string]string{"operation": "persist", "error_type": "scan"})

	count, err := testutil.GatherAndCount(registry, metricName)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	family := gatherFamily(t, registry, metricName)
	for _, m := range family.GetMetric() {
		require.Len(t, m.GetLabel(), 2)
		if m.GetLabel()[0].GetValue() == "persist" {
			assert.Equal(t, "selection", m.GetLabel()[1].GetName())
			assert.Empty(t, m.GetLabel()[1].GetValue())
			assert.InDelta(t, 3.0, m.GetCounter().GetValue(), 0.0001)
		}
	}

	assert.True(t, logHandler.HasWarnLogWithMessage("promadapters: labels unknown to the metric were dropped").
		WithAttr("metric", metricName).
		WithAttr("label", "error_type").
		Assert())
	assert.Len(t, logHandler.GetRecords(), 1)
}

func Test_MetricsCollector_CollectorsSharingARegistry_ShareTheMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	require.NoError(t, err)
	second, err := promadapters.NewMetricsCollector(promadapters.WithRegisterer(registry))
	require.NoError(t, err)
	labels := map[string]string{"operation": "latest"}

	first.IncrementCounter("auditstore_cache_misses_total", labels)
	second.IncrementCounter("auditstore_cache_misses_total", labels)

	family := gatherFamily(t, registry, "auditstore_cache_misses_total")
	require.Len(t, family.GetMetric(), 1)
	assert.InDelta(t, 2.0, family.GetMetric()[0].GetCounter().GetValue(), 0.0001)
}

func Test_MetricsCollector_RegistrationConflict_DropsMeasurementsAndWarnsOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auditstore_query_errors_total",
		Help: "registered elsewhere",
	}))

	logHandler := testdoubles.NewLogHandlerSpy(false)
	collector, err := promadapters.NewMetricsCollector(
		promadapters.WithRegisterer(registry),
		promadapters.WithLogger(slog.New(logHandler)),
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		collector.IncrementCounter("auditstore_query_errors_total", map[string]string{"operation": "query_for_changes"})
		collector.IncrementCounterContext(context.Background(), "auditstore_query_errors_total", nil)
	})

	assert.True(t, logHandler.HasWarnLogWithMessage("promadapters: registering metric failed, dropping measurements").
		WithAttr("metric", "auditstore_query_errors_total").
		WithAttrKey("error").
		Assert())
	assert.Len(t, logHandler.GetRecords(), 1)
}

func Test_MetricsCollector_ContextualMethods_AttachTraceExemplars(t *testing.T) {
	collector, registry := newCollector(t)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	collector.IncrementCounterContext(ctx, "auditstore_query_results_total", map[string]string{"operation": "query_for_changes"})
	collector.RecordDurationContext(ctx, "auditstore_query_duration_seconds", time.Millisecond, nil)
	collector.RecordValueContext(context.Background(), "auditstore_repository_snapshots_persisted", 2, nil)

	counter := gatherFamily(t, registry, "auditstore_query_results_total").GetMetric()[0].GetCounter()
	require.NotNil(t, counter.GetExemplar())
	require.Len(t, counter.GetExemplar().GetLabel(), 1)
	assert.Equal(t, "trace_id", counter.GetExemplar().GetLabel()[0].GetName())
	assert.Equal(t, traceID.String(), counter.GetExemplar().GetLabel()[0].GetValue())

	histogram := gatherFamily(t, registry, "auditstore_query_duration_seconds").GetMetric()[0].GetHistogram()
	exemplars := 0
	for _, bucket := range histogram.GetBucket() {
		if bucket.GetExemplar() != nil {
			exemplars++
		}
	}
	assert.Equal(t, 1, exemplars)

	values := gatherFamily(t, registry, "auditstore_repository_snapshots_persisted").GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), values.GetSampleCount())
	for _, bucket := range values.GetBucket() {
		assert.Nil(t, bucket.GetExemplar())
	}
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	collector, registry := newCollector(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("auditstore_cache_misses_total", map[string]string{"operation": "latest"})
			collector.RecordDuration("auditstore_repository_query_duration_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	counter := gatherFamily(t, registry, "auditstore_cache_misses_total").GetMetric()[0].GetCounter()
	assert.InDelta(t, 20.0, counter.GetValue(), 0.0001)
	histogram := gatherFamily(t, registry, "auditstore_repository_query_duration_seconds").GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(20), histogram.GetSampleCount())
}
