package oteladapters

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

const (
	logMsgInstrumentFailed = "oteladapters: creating instrument failed, dropping measurements"
	logAttrMetric          = "metric"
	logAttrError           = "error"
	unitSeconds            = "s"
	unitSnapshots          = "{snapshot}"
)

var (
	_ auditstore.MetricsCollector           = (*MetricsCollector)(nil)
	_ auditstore.ContextualMetricsCollector = (*MetricsCollector)(nil)
)

// durationBuckets covers single row lookups up to slow history scans, in seconds.
var durationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// MetricsCollector maps the auditstore metrics onto OpenTelemetry instruments:
//   - RecordDuration -> Float64Histogram in seconds
//   - IncrementCounter -> Int64Counter
//   - RecordValue -> Float64Histogram, the values are result sizes per operation
//
// Instruments are created on first use and cached. It is safe for concurrent use.
type MetricsCollector struct {
	meter  metric.Meter
	logger auditstore.Logger

	mu         sync.RWMutex
	durations  map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	values     map[string]metric.Float64Histogram
	failedOnce map[string]struct{}
}

// MetricsOption configures the MetricsCollector.
type MetricsOption func(*MetricsCollector)

// WithInstrumentErrorLogger sets a logger that is told once per metric when an instrument can not be created.
func WithInstrumentErrorLogger(logger auditstore.Logger) MetricsOption {
	return func(m *MetricsCollector) {
		m.logger = logger
	}
}

// NewMetricsCollector creates a collector recording through the given meter.
// Without a meter all measurements are dropped.
func NewMetricsCollector(meter metric.Meter, options ...MetricsOption) *MetricsCollector {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}

	collector := &MetricsCollector{
		meter:      meter,
		durations:  make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		values:     make(map[string]metric.Float64Histogram),
		failedOnce: make(map[string]struct{}),
	}

	for _, option := range options {
		option(collector)
	}

	return collector
}

func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), metricName, duration, labels)
}

func (m *MetricsCollector) RecordDurationContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {

	histogram := instrument(m, m.durations, metricName, func() (metric.Float64Histogram, error) {
		return m.meter.Float64Histogram(
			metricName,
			metric.WithDescription(describe(metricName)),
			metric.WithUnit(unitSeconds),
			metric.WithExplicitBucketBoundaries(durationBuckets...),
		)
	})

	if histogram != nil {
		histogram.Record(ctx, duration.Seconds(), metric.WithAttributeSet(attributesOf(labels)))
	}
}

func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), metricName, labels)
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	counter := instrument(m, m.counters, metricName, func() (metric.Int64Counter, error) {
		return m.meter.Int64Counter(metricName, metric.WithDescription(describe(metricName)))
	})

	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributeSet(attributesOf(labels)))
	}
}

func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), metricName, value, labels)
}

func (m *MetricsCollector) RecordValueContext(
	ctx context.Context,
	metricName string,
	value float64,
	labels map[string]string,
) {

	histogram := instrument(m, m.values, metricName, func() (metric.Float64Histogram, error) {
		return m.meter.Float64Histogram(
			metricName,
			metric.WithDescription(describe(metricName)),
			metric.WithUnit(unitSnapshots),
		)
	})

	if histogram != nil {
		histogram.Record(ctx, value, metric.WithAttributeSet(attributesOf(labels)))
	}
}

// instrument returns the cached instrument for name or creates it.
// A failed creation is logged once and retried on the next call.
func instrument[T any](m *MetricsCollector, cache map[string]T, name string, create func() (T, error)) T {
	m.mu.RLock()
	existing, found := cache[name]
	m.mu.RUnlock()

	if found {
		return existing
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, found = cache[name]; found {
		return existing
	}

	created, err := create()
	if err != nil {
		if _, logged := m.failedOnce[name]; !logged && m.logger != nil {
			m.logger.Warn(logMsgInstrumentFailed, logAttrMetric, name, logAttrError, err.Error())
		}
		m.failedOnce[name] = struct{}{}

		var zero T

		return zero
	}

	cache[name] = created

	return created
}

// attributesOf builds an attribute set with a stable key order.
func attributesOf(labels map[string]string) attribute.Set {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, attribute.String(key, labels[key]))
	}

	return attribute.NewSet(attrs...)
}

// describe derives a description from a metric name like auditstore_query_duration_seconds.
func describe(metricName string) string {
	name := strings.TrimSuffix(metricName, "_seconds")
	name = strings.TrimSuffix(name, "_total")

	return strings.ReplaceAll(name, "_", " ")
}
