package main

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/internal/config"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

var (
	_ auditstore.Logger           = (*zapLogger)(nil)
	_ auditstore.ContextualLogger = (*zapLogger)(nil)
)

// zapLogger adapts a zap logger to the auditstore logger interfaces.
// The contextual methods add the ids of the active span.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func newZapLogger(logger *zap.Logger) *zapLogger {
	return &zapLogger{sugar: logger.Sugar()}
}

// buildZapLogger writes to stderr so that stdout only carries query results.
func buildZapLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, errors.Join(ErrInvalidLogLevel, err)
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	return zapConfig.Build()
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *zapLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, withSpan(ctx, args)...)
}

func (l *zapLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, withSpan(ctx, args)...)
}

func (l *zapLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, withSpan(ctx, args)...)
}

func (l *zapLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, withSpan(ctx, args)...)
}

func withSpan(ctx context.Context, args []any) []any {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return args
	}

	return append(args[:len(args):len(args)], "trace_id", spanContext.TraceID().String(), "span_id", spanContext.SpanID().String())
}
