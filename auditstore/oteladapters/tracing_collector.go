package oteladapters

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

const (
	statusSuccess     = "success"
	statusError       = "error"
	attrStatus        = "auditstore.status"
	attrErrorType     = "error_type"
	defaultErrorTitle = "auditstore operation failed"
)

var (
	_ auditstore.TracingCollector = (*TracingCollector)(nil)
	_ auditstore.SpanContext      = (*OTelSpanContext)(nil)
)

// TracingCollector creates one OpenTelemetry span per traced auditstore operation.
// The returned context carries the span, so nested operations become child spans
// and an otelslog based logger correlates its records with it.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector for the tracer. Without a tracer no spans are recorded.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, auditstore.SpanContext) {

	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(sortedAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds the final attributes, sets the status, and ends the span.
// Span contexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx auditstore.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(sortedAttributes(attrs)...)

	if errorType, hasErrorType := attrs[attrErrorType]; hasErrorType && status == statusError {
		otelSpanCtx.span.SetStatus(codes.Error, errorType)
	} else {
		otelSpanCtx.SetStatus(status)
	}

	otelSpanCtx.span.End()
}

// OTelSpanContext wraps an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// Span exposes the wrapped span, e.g. to record events on it.
func (s *OTelSpanContext) Span() trace.Span {
	return s.span
}

// SetStatus maps the auditstore status strings to span status codes.
// Any other status is kept as an attribute and leaves the code unset.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusError:
		s.span.SetStatus(codes.Error, defaultErrorTitle)
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

func sortedAttributes(attrs map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		kvs = append(kvs, attribute.String(key, attrs[key]))
	}

	return kvs
}
