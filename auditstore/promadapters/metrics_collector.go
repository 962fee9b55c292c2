package promadapters

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

const (
	logMsgRegistrationFailed = "promadapters: registering metric failed, dropping measurements"
	logMsgLabelsDropped      = "promadapters: labels unknown to the metric were dropped"
	logAttrMetric            = "metric"
	logAttrLabel             = "label"
	logAttrError             = "error"
)

var ErrNilRegisterer = errors.New("prometheus registerer must not be nil")

var _ auditstore.ContextualMetricsCollector = (*MetricsCollector)(nil)

var (
	// DefaultDurationBuckets covers single row lookups up to slow history scans, in seconds.
	DefaultDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// DefaultValueBuckets covers the number of snapshots or changes returned by one operation.
	DefaultValueBuckets = []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
)

const exemplarTraceID = "trace_id"

// MetricsCollector records the auditstore metrics with the Prometheus client:
//   - RecordDuration -> HistogramVec in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> HistogramVec of result sizes
//
// Prometheus needs fixed label names per metric, so the labels of the first measurement
// define them. Later measurements get an empty value for a missing label, and unknown labels
// are dropped with a warning.
//
// The Context variants attach the trace id of a sampled span as an exemplar.
type MetricsCollector struct {
	registerer      prometheus.Registerer
	durationBuckets []float64
	valueBuckets    []float64
	logger          auditstore.Logger

	mu         sync.Mutex
	histograms map[string]*labeledVec[*prometheus.HistogramVec]
	counters   map[string]*labeledVec[*prometheus.CounterVec]
	warned     map[string]struct{}
}

type labeledVec[V any] struct {
	vec        V
	labelNames []string
}

// Option configures the MetricsCollector.
type Option func(*MetricsCollector) error

// WithRegisterer sets the registry the metrics are registered with, prometheus.DefaultRegisterer otherwise.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(m *MetricsCollector) error {
		if registerer == nil {
			return ErrNilRegisterer
		}

		m.registerer = registerer

		return nil
	}
}

// WithDurationBuckets sets the histogram buckets of all duration metrics.
func WithDurationBuckets(buckets ...float64) Option {
	return func(m *MetricsCollector) error {
		m.durationBuckets = buckets
		return nil
	}
}

// WithValueBuckets sets the histogram buckets of all value metrics.
func WithValueBuckets(buckets ...float64) Option {
	return func(m *MetricsCollector) error {
		m.valueBuckets = buckets
		return nil
	}
}

// WithLogger sets the logger that receives registration and label problems at warn level.
func WithLogger(logger auditstore.Logger) Option {
	return func(m *MetricsCollector) error {
		m.logger = logger
		return nil
	}
}

// NewMetricsCollector creates a collector. Metrics are registered on first use.
func NewMetricsCollector(options ...Option) (*MetricsCollector, error) {
	collector := &MetricsCollector{
		registerer:      prometheus.DefaultRegisterer,
		durationBuckets: DefaultDurationBuckets,
		valueBuckets:    DefaultValueBuckets,
		histograms:      make(map[string]*labeledVec[*prometheus.HistogramVec]),
		counters:        make(map[string]*labeledVec[*prometheus.CounterVec]),
		warned:          make(map[string]struct{}),
	}

	for _, option := range options {
		if err := option(collector); err != nil {
			return nil, err
		}
	}

	return collector, nil
}

func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	if observer := m.histogram(metricName, m.durationBuckets, labels); observer != nil {
		observer.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) RecordDurationContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {

	if observer := m.histogram(metricName, m.durationBuckets, labels); observer != nil {
		observe(ctx, observer, duration.Seconds())
	}
}

func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	if counter := m.counter(metricName, labels); counter != nil {
		counter.Inc()
	}
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	counter := m.counter(metricName, labels)
	if counter == nil {
		return
	}

	exemplar := exemplarOf(ctx)
	if adder, ok := counter.(prometheus.ExemplarAdder); ok && exemplar != nil {
		adder.AddWithExemplar(1, exemplar)
		return
	}

	counter.Inc()
}

func (m *MetricsCollector) RecordValueContext(
	ctx context.Context,
	metricName string,
	value float64,
	labels map[string]string,
) {

	if observer := m.histogram(metricName, m.valueBuckets, labels); observer != nil {
		observe(ctx, observer, value)
	}
}

func (m *MetricsCollector) counter(metricName string, labels map[string]string) prometheus.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	counter, found := m.counters[metricName]
	if !found {
		labelNames := sortedKeys(labels)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metricName, Help: help(metricName)}, labelNames)

		registered, ok := register(m, metricName, vec)
		if !ok {
			return nil
		}

		counter = &labeledVec[*prometheus.CounterVec]{vec: registered, labelNames: labelNames}
		m.counters[metricName] = counter
	}

	return counter.vec.WithLabelValues(m.labelValues(metricName, counter.labelNames, labels)...)
}

func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	if observer := m.histogram(metricName, m.valueBuckets, labels); observer != nil {
		observer.Observe(value)
	}
}

func (m *MetricsCollector) histogram(metricName string, buckets []float64, labels map[string]string) prometheus.Observer {
	m.mu.Lock()
	defer m.mu.Unlock()

	histogram, found := m.histograms[metricName]
	if !found {
		labelNames := sortedKeys(labels)
		vec := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: metricName, Help: help(metricName), Buckets: buckets},
			labelNames,
		)

		registered, ok := register(m, metricName, vec)
		if !ok {
			return nil
		}

		histogram = &labeledVec[*prometheus.HistogramVec]{vec: registered, labelNames: labelNames}
		m.histograms[metricName] = histogram
	}

	return histogram.vec.WithLabelValues(m.labelValues(metricName, histogram.labelNames, labels)...)
}

func observe(ctx context.Context, observer prometheus.Observer, value float64) {
	exemplar := exemplarOf(ctx)
	if exemplarObserver, ok := observer.(prometheus.ExemplarObserver); ok && exemplar != nil {
		exemplarObserver.ObserveWithExemplar(value, exemplar)
		return
	}

	observer.Observe(value)
}

// exemplarOf returns nil unless ctx carries a sampled span.
func exemplarOf(ctx context.Context) prometheus.Labels {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() || !spanContext.IsSampled() {
		return nil
	}

	return prometheus.Labels{exemplarTraceID: spanContext.TraceID().String()}
}

// register registers the collector, or reuses the one already registered under the same name,
// e.g. by another MetricsCollector sharing the registry.
func register[V prometheus.Collector](m *MetricsCollector, metricName string, vec V) (V, bool) {
	err := m.registerer.Register(vec)
	if err == nil {
		return vec, true
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(V); ok {
			return existing, true
		}
	}

	m.warnOnce(metricName, logMsgRegistrationFailed, logAttrMetric, metricName, logAttrError, err.Error())

	var zero V

	return zero, false
}

// labelValues orders the values by the label names of the metric.
func (m *MetricsCollector) labelValues(metricName string, labelNames []string, labels map[string]string) []string {
	values := make([]string, len(labelNames))
	for i, name := range labelNames {
		values[i] = labels[name]
	}

	for name := range labels {
		if !slices.Contains(labelNames, name) {
			m.warnOnce(metricName+"/"+name, logMsgLabelsDropped, logAttrMetric, metricName, logAttrLabel, name)
		}
	}

	return values
}

func (m *MetricsCollector) warnOnce(key string, msg string, args ...any) {
	if _, warned := m.warned[key]; warned || m.logger == nil {
		return
	}

	m.warned[key] = struct{}{}
	m.logger.Warn(msg, args...)
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}

// help derives the help text from a metric name like auditstore_query_duration_seconds.
func help(metricName string) string {
	name := strings.TrimSuffix(metricName, "_seconds")
	name = strings.TrimSuffix(name, "_total")

	return strings.ReplaceAll(name, "_", " ")
}
