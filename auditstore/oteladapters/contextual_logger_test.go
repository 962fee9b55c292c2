package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/auditstore-go/auditstore/oteladapters"
)

type emittedRecord struct {
	body        string
	severity    log.Severity
	attributes  map[string]log.Value
	spanContext trace.SpanContext
}

// recordingLogger is an OpenTelemetry log.Logger keeping every emitted record.
type recordingLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []emittedRecord
}

func (l *recordingLogger) Emit(ctx context.Context, record log.Record) {
	emitted := emittedRecord{
		body:        record.Body().AsString(),
		severity:    record.Severity(),
		attributes:  make(map[string]log.Value),
		spanContext: trace.SpanContextFromContext(ctx),
	}

	record.WalkAttributes(func(kv log.KeyValue) bool {
		emitted.attributes[kv.Key] = kv.Value
		return true
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, emitted)
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func (l *recordingLogger) only(t *testing.T) emittedRecord {
	t.Helper()

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.records, 1)

	return l.records[0]
}

type recordingProvider struct {
	embedded.LoggerProvider

	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...log.LoggerOption) log.Logger {
	return p.logger
}

func Test_SlogBridgeLogger_CorrelatesRecordsWithTheActiveSpan(t *testing.T) {
	recorder := &recordingLogger{}
	logger := oteladapters.NewSlogBridgeLogger(
		"auditstore",
		otelslog.WithLoggerProvider(&recordingProvider{logger: recorder}),
	)
	tracer, _ := newTracer(t)

	ctx, span := tracer.Start(context.Background(), "auditstore.query_for_changes")
	logger.InfoContext(ctx, "auditstore: query dispatched", "query_kind", "instance_id")
	span.End()

	record := recorder.only(t)
	assert.Equal(t, "auditstore: query dispatched", record.body)
	assert.Equal(t, log.SeverityInfo, record.severity)
	assert.Equal(t, "instance_id", record.attributes["query_kind"].AsString())
	assert.Equal(t, span.SpanContext().TraceID(), record.spanContext.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), record.spanContext.SpanID())
}

func Test_SlogBridgeLogger_ServesBothLoggerInterfaces(t *testing.T) {
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	ctx := context.Background()

	logger.Debug("plain debug")
	logger.Info("plain info")
	logger.Warn("plain warn")
	logger.Error("plain error")
	logger.DebugContext(ctx, "contextual debug")
	logger.InfoContext(ctx, "contextual info", "snapshot_count", 3, "duration_ms", 1.5)
	logger.WarnContext(ctx, "contextual warn")
	logger.ErrorContext(ctx, "contextual error")

	output := buf.String()
	for _, message := range []string{
		"plain debug", "plain info", "plain warn", "plain error",
		"contextual debug", "contextual info", "contextual warn", "contextual error",
	} {
		assert.Contains(t, output, message)
	}
	assert.Contains(t, output, `"snapshot_count":3`)
	assert.Contains(t, output, `"duration_ms":1.5`)
}

//nolint:funlen
func Test_OTelLogger_EmitsTypedAttributes(t *testing.T) {
	testCases := []struct {
		name     string
		emit     func(ctx context.Context, logger *oteladapters.OTelLogger)
		severity log.Severity
		validate func(t *testing.T, attributes map[string]log.Value)
	}{
		{
			name: "debug with strings",
			emit: func(ctx context.Context, logger *oteladapters.OTelLogger) {
				logger.DebugContext(ctx, "message", "query", "SELECT 1")
			},
			severity: log.SeverityDebug,
			validate: func(t *testing.T, attributes map[string]log.Value) {
				assert.Equal(t, "SELECT 1", attributes["query"].AsString())
			},
		},
		{
			name: "info with numbers and durations",
			emit: func(ctx context.Context, logger *oteladapters.OTelLogger) {
				logger.InfoContext(ctx, "message",
					"snapshot_count", 3,
					"version", uint64(7),
					"duration_ms", 1.25,
					"elapsed", 2*time.Second,
				)
			},
			severity: log.SeverityInfo,
			validate: func(t *testing.T, attributes map[string]log.Value) {
				assert.Equal(t, int64(3), attributes["snapshot_count"].AsInt64())
				assert.Equal(t, int64(7), attributes["version"].AsInt64())
				assert.InDelta(t, 1.25, attributes["duration_ms"].AsFloat64(), 0.0001)
				assert.Equal(t, int64(2000), attributes["elapsed"].AsInt64())
			},
		},
		{
			name: "warn with bool and slog attr",
			emit: func(ctx context.Context, logger *oteladapters.OTelLogger) {
				logger.WarnContext(ctx, "message", "cached", true, slog.String("global_id", "Person/frodo"))
			},
			severity: log.SeverityWarn,
			validate: func(t *testing.T, attributes map[string]log.Value) {
				assert.True(t, attributes["cached"].AsBool())
				assert.Equal(t, "Person/frodo", attributes["global_id"].AsString())
			},
		},
		{
			name: "error with error value and dangling value",
			emit: func(ctx context.Context, logger *oteladapters.OTelLogger) {
				logger.ErrorContext(ctx, "message", "error", errors.New("boom"), "dangling")
			},
			severity: log.SeverityError,
			validate: func(t *testing.T, attributes map[string]log.Value) {
				assert.Equal(t, "boom", attributes["error"].AsString())
				assert.Equal(t, "dangling", attributes["!BADKEY"].AsString())
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &recordingLogger{}
			logger := oteladapters.NewOTelLogger(recorder)

			tc.emit(context.Background(), logger)

			record := recorder.only(t)
			assert.Equal(t, "message", record.body)
			assert.Equal(t, tc.severity, record.severity)
			tc.validate(t, record.attributes)
		})
	}
}
