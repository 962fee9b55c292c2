package query

import (
	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner) error

// WithLogger sets the logger for the Runner.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: the query being dispatched
// Info level: result counts and durations
// Error level: failed queries with the error type.
func WithLogger(logger auditstore.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Runner.
// Log records then carry the trace correlation of the query span.
func WithContextualLogger(logger auditstore.ContextualLogger) Option {
	return func(r *Runner) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Runner.
// It receives query durations, result counts, and errors by error type.
func WithMetrics(collector auditstore.MetricsCollector) Option {
	return func(r *Runner) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Runner, one span is started per query.
func WithTracing(collector auditstore.TracingCollector) Option {
	return func(r *Runner) error {
		r.tracingCollector = collector
		return nil
	}
}
