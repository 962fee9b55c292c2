package postgresengine

import (
	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// Option defines a functional option for configuring the SnapshotStore.
type Option func(*SnapshotStore) error

// WithTableName sets the table name for the SnapshotStore.
func WithTableName(tableName string) Option {
	return func(s *SnapshotStore) error {
		if tableName == "" {
			return auditstore.ErrEmptySnapshotTableName
		}

		s.snapshotTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the SnapshotStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Snapshot counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger auditstore.Logger) Option {
	return func(s *SnapshotStore) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the SnapshotStore.
// It receives query and persist durations, snapshot counts, concurrency conflicts, and database errors.
func WithMetrics(collector auditstore.MetricsCollector) Option {
	return func(s *SnapshotStore) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the SnapshotStore.
// It receives one span per query or persist operation.
func WithTracing(collector auditstore.TracingCollector) Option {
	return func(s *SnapshotStore) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the SnapshotStore.
// Its records carry the trace and span ids of the current operation when tracing is enabled.
func WithContextualLogger(logger auditstore.ContextualLogger) Option {
	return func(s *SnapshotStore) error {
		s.contextualLogger = logger
		return nil
	}
}
