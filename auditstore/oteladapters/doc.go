// Package oteladapters implements the auditstore observability interfaces with OpenTelemetry.
//
//	tracing := oteladapters.NewTracingCollector(otel.Tracer("auditstore"))
//	metrics := oteladapters.NewMetricsCollector(otel.Meter("auditstore"))
//	logger := oteladapters.NewSlogBridgeLogger("auditstore")
//
//	runner, _ := query.NewRunner(repo, factory, mapper,
//		query.WithTracing(tracing),
//		query.WithMetrics(metrics),
//		query.WithContextualLogger(logger),
//	)
package oteladapters
