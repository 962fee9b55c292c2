package query

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

/***** Logging *****/

func (r *Runner) logDispatching(ctx context.Context, operation string, q Query) {
	args := []any{logAttrOperation, operation, logAttrQuery, q.String()}

	if r.logger != nil {
		r.logger.Debug(logMsgDispatching, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.DebugContext(ctx, logMsgDispatching, args...)
	}
}

func (r *Runner) logCompletion(
	ctx context.Context,
	operation string,
	q Query,
	resultCount int,
	duration time.Duration,
	extra ...any,
) {
	args := []any{
		logAttrOperation, operation,
		logAttrQueryKind, string(q.Kind()),
		logAttrResultCount, resultCount,
		logAttrDurationMS, toMilliseconds(duration),
	}
	args = append(args, extra...)

	if r.logger != nil {
		r.logger.Info(logMsgQueryCompleted, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, logMsgQueryCompleted, args...)
	}
}

func (r *Runner) logFailure(ctx context.Context, operation string, q Query, errorType string, err error) {
	args := []any{
		logAttrError, err.Error(),
		logAttrErrorType, errorType,
		logAttrOperation, operation,
		logAttrQuery, q.String(),
	}

	if r.logger != nil {
		r.logger.Error(logMsgQueryFailed, args...)
	}

	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, logMsgQueryFailed, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

/***** Metrics *****/

type queryMetricsObserver struct {
	r         *Runner
	ctx       context.Context
	operation string
}

func (r *Runner) startQueryMetrics(ctx context.Context, operation string) *queryMetricsObserver {
	return &queryMetricsObserver{r: r, ctx: ctx, operation: operation}
}

func (o *queryMetricsObserver) recordSuccess(resultCount int, duration time.Duration) {
	o.recordDuration(duration, statusSuccess)
	o.recordValue(float64(resultCount))
}

func (o *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.recordDuration(duration, statusError)

	collector := o.r.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: o.operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := collector.(auditstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(o.ctx, metricQueryErrors, labels)
		return
	}

	collector.IncrementCounter(metricQueryErrors, labels)
}

func (o *queryMetricsObserver) recordDuration(duration time.Duration, status string) {
	collector := o.r.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: o.operation, "status": status}

	if contextual, ok := collector.(auditstore.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricQueryDuration, duration, labels)
		return
	}

	collector.RecordDuration(metricQueryDuration, duration, labels)
}

func (o *queryMetricsObserver) recordValue(value float64) {
	collector := o.r.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: o.operation, "status": statusSuccess}

	if contextual, ok := collector.(auditstore.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(o.ctx, metricQueryResults, value, labels)
		return
	}

	collector.RecordValue(metricQueryResults, value, labels)
}

/***** Tracing *****/

type queryTracingObserver struct {
	r    *Runner
	span auditstore.SpanContext
}

func (r *Runner) startQueryTracing(
	ctx context.Context,
	spanName string,
	operation string,
	kind Kind,
) (*queryTracingObserver, context.Context) {
	if r.tracingCollector == nil {
		return &queryTracingObserver{r: r}, ctx
	}

	newCtx, span := r.tracingCollector.StartSpan(ctx, spanName, map[string]string{
		spanAttrOperation: operation,
		spanAttrQueryKind: string(kind),
	})

	return &queryTracingObserver{r: r, span: span}, newCtx
}

func (o *queryTracingObserver) finishSuccess(resultCount int, duration time.Duration) {
	if o.span == nil {
		return
	}

	count := strconv.Itoa(resultCount)

	o.span.SetStatus(statusSuccess)
	o.span.AddAttribute(spanAttrResultCount, count)
	o.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	o.r.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{spanAttrResultCount: count})
}

func (o *queryTracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	o.r.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

func formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", toMilliseconds(duration))
}
