// Package testdoubles provides spies for the observability interfaces of the audit store.
//
//   - MetricsCollectorSpy: captures metrics recording calls
//   - TracingCollectorSpy: captures spans and their attributes
//   - ContextualLoggerSpy: captures context-aware log calls
//   - LogHandlerSpy: a slog.Handler capturing log records and attributes
package testdoubles
