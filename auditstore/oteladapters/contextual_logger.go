package oteladapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

const badKey = "!BADKEY"

var (
	_ auditstore.ContextualLogger = (*SlogBridgeLogger)(nil)
	_ auditstore.Logger           = (*SlogBridgeLogger)(nil)
	_ auditstore.ContextualLogger = (*OTelLogger)(nil)
)

// SlogBridgeLogger logs through log/slog and correlates records with the active span.
//
// It satisfies both auditstore.Logger and auditstore.ContextualLogger, so the same value
// can be passed to WithLogger and WithContextualLogger of the auditstore components.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a logger backed by the OpenTelemetry slog bridge.
// Records go to the global LoggerProvider unless an otelslog.WithLoggerProvider option is given.
func NewSlogBridgeLogger(name string, options ...otelslog.Option) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name, options...)}
}

// NewSlogBridgeLoggerWithHandler creates a logger writing to the given handler.
// The handler decides about trace correlation, the bridge is not involved.
func NewSlogBridgeLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: slog.New(handler)}
}

func (l *SlogBridgeLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogBridgeLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogBridgeLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogBridgeLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

// OTelLogger emits records directly through the OpenTelemetry logs API.
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates a contextual logger for an OpenTelemetry log.Logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	record := log.Record{}
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))
	record.AddAttributes(keyValues(args)...)

	l.logger.Emit(ctx, record)
}

// keyValues converts slog style alternating key/value args into typed log attributes.
// A value without a key is reported under !BADKEY, as slog does.
func keyValues(args []any) []log.KeyValue {
	attributes := make([]log.KeyValue, 0, len(args)/2+1)

	for i := 0; i < len(args); {
		if attr, ok := args[i].(slog.Attr); ok {
			attributes = append(attributes, log.KeyValue{Key: attr.Key, Value: toLogValue(attr.Value.Any())})
			i++

			continue
		}

		key, isKey := args[i].(string)
		if !isKey || i+1 == len(args) {
			attributes = append(attributes, log.KeyValue{Key: badKey, Value: toLogValue(args[i])})
			i++

			continue
		}

		attributes = append(attributes, log.KeyValue{Key: key, Value: toLogValue(args[i+1])})
		i += 2
	}

	return attributes
}

func toLogValue(value any) log.Value {
	switch v := value.(type) {
	case string:
		return log.StringValue(v)
	case bool:
		return log.BoolValue(v)
	case int:
		return log.IntValue(v)
	case int64:
		return log.Int64Value(v)
	case uint64:
		return log.Int64Value(int64(v)) //nolint:gosec // sequence numbers and versions fit
	case float64:
		return log.Float64Value(v)
	case time.Duration:
		return log.Int64Value(v.Milliseconds())
	case error:
		return log.StringValue(v.Error())
	case fmt.Stringer:
		return log.StringValue(v.String())
	default:
		return log.StringValue(slog.AnyValue(v).String())
	}
}
