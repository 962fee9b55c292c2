package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

const (
	operationQuery               = "query"
	operationPersist             = "persist"
	spanNameQuery                = "auditstore.repository.query"
	spanNamePersist              = "auditstore.repository.persist"
	spanAttrOperation            = "operation"
	spanAttrSelection            = "selection"
	spanAttrSnapshotCount        = "snapshot_count"
	spanAttrGlobalID             = "global_id"
	spanAttrRowsAffected         = "rows_affected"
	spanAttrDurationMS           = "duration_ms"
	spanAttrErrorType            = "error_type"
	metricQueryDuration          = "auditstore_repository_query_duration_seconds"
	metricSnapshotsQueried       = "auditstore_repository_snapshots_queried"
	metricPersistDuration        = "auditstore_repository_persist_duration_seconds"
	metricSnapshotsPersisted     = "auditstore_repository_snapshots_persisted"
	metricDatabaseErrors         = "auditstore_repository_database_errors_total"
	metricConcurrencyConflicts   = "auditstore_repository_concurrency_conflicts_total"
	labelStatus                  = "status"
	labelConflictType            = "conflict_type"
	conflictTypeConcurrency      = "concurrency"
	statusSuccess                = "success"
	statusError                  = "error"
	errorTypeValidation          = "validation_error"
	errorTypeBuildQuery          = "build_query_error"
	errorTypeDatabaseQuery       = "database_query_error"
	errorTypeDatabaseExec        = "database_exec_error"
	errorTypeRowScan             = "row_scan_error"
	errorTypeBuildSnapshot       = "build_snapshot_error"
	errorTypeConcurrencyConflict = "concurrency_conflict"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (s *SnapshotStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, s.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (s *SnapshotStore) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if the logger is configured.
func (s *SnapshotStore) logError(message string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s *SnapshotStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

/***** Contextual logging *****/

// logQueryWithDurationContext logs SQL queries with execution time and context correlation.
func (s *SnapshotStore) logQueryWithDurationContext(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(
			ctx,
			logMsgSQLExecuted+action,
			logAttrDurationMS, s.toMilliseconds(duration),
			logAttrQuery, sqlQuery,
		)
	}
}

// logOperationContext logs operational information with context correlation.
func (s *SnapshotStore) logOperationContext(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logErrorContext logs error information with context correlation.
func (s *SnapshotStore) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	if s.contextualLogger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

/***** Metrics *****/

// recordDurationMetricsContext records duration metrics with context if the collector supports it.
func (s *SnapshotStore) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {

	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(auditstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricName, duration, labels)
}

// recordValueMetricsContext records value metrics with context if the collector supports it.
func (s *SnapshotStore) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	labels map[string]string,
) {

	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(auditstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metricName, value, labels)
}

// incrementCounterContext increments a counter with context if the collector supports it.
func (s *SnapshotStore) incrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(auditstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metricName, labels)
}

// queryMetricsObserver encapsulates the metrics collection for query operations.
type queryMetricsObserver struct {
	s         *SnapshotStore
	ctx       context.Context
	selection string
}

// persistMetricsObserver encapsulates the metrics collection for persist operations.
type persistMetricsObserver struct {
	s   *SnapshotStore
	ctx context.Context
}

func (s *SnapshotStore) startQueryMetrics(ctx context.Context, selection string) *queryMetricsObserver {
	return &queryMetricsObserver{s: s, ctx: ctx, selection: selection}
}

func (s *SnapshotStore) startPersistMetrics(ctx context.Context) *persistMetricsObserver {
	return &persistMetricsObserver{s: s, ctx: ctx}
}

func (qmo *queryMetricsObserver) labels(status string) map[string]string {
	return map[string]string{
		spanAttrOperation: operationQuery,
		spanAttrSelection: qmo.selection,
		labelStatus:       status,
	}
}

// recordSuccess records all metrics for a successful query operation.
func (qmo *queryMetricsObserver) recordSuccess(snapshotCount int, duration time.Duration) {
	qmo.s.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, qmo.labels(statusSuccess))
	qmo.s.recordValueMetricsContext(qmo.ctx, metricSnapshotsQueried, float64(snapshotCount), qmo.labels(statusSuccess))
}

// recordError records all metrics for a failed query operation.
func (qmo *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	qmo.s.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, qmo.labels(statusError))

	labels := qmo.labels(statusError)
	labels[spanAttrErrorType] = errorType
	qmo.s.incrementCounterContext(qmo.ctx, metricDatabaseErrors, labels)
}

// recordSuccess records all metrics for a successful persist operation.
func (pmo *persistMetricsObserver) recordSuccess(snapshotCount int, duration time.Duration) {
	labels := map[string]string{spanAttrOperation: operationPersist, labelStatus: statusSuccess}

	pmo.s.recordDurationMetricsContext(pmo.ctx, metricPersistDuration, duration, labels)
	pmo.s.recordValueMetricsContext(pmo.ctx, metricSnapshotsPersisted, float64(snapshotCount), labels)
}

// recordError records all metrics for a failed persist operation.
func (pmo *persistMetricsObserver) recordError(errorType string, duration time.Duration) {
	pmo.s.recordDurationMetricsContext(
		pmo.ctx,
		metricPersistDuration,
		duration,
		map[string]string{spanAttrOperation: operationPersist, labelStatus: statusError},
	)

	pmo.s.incrementCounterContext(pmo.ctx, metricDatabaseErrors, map[string]string{
		spanAttrOperation: operationPersist,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

// recordConcurrencyConflict records a rejected persist.
func (pmo *persistMetricsObserver) recordConcurrencyConflict() {
	pmo.s.incrementCounterContext(pmo.ctx, metricConcurrencyConflicts, map[string]string{
		spanAttrOperation: operationPersist,
		labelConflictType: conflictTypeConcurrency,
	})
}

/***** Tracing *****/

// queryTracingObserver encapsulates tracing span lifecycle management for query operations.
type queryTracingObserver struct {
	s    *SnapshotStore
	span auditstore.SpanContext
}

// persistTracingObserver encapsulates tracing span lifecycle management for persist operations.
type persistTracingObserver struct {
	s    *SnapshotStore
	span auditstore.SpanContext
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (s *SnapshotStore) startTraceSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, auditstore.SpanContext) {

	if s.tracingCollector != nil {
		return s.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (s *SnapshotStore) finishTraceSpan(span auditstore.SpanContext, status string, attrs map[string]string) {
	if s.tracingCollector != nil && span != nil {
		s.tracingCollector.FinishSpan(span, status, attrs)
	}
}

func (s *SnapshotStore) startQueryTracing(ctx context.Context, selection string) (*queryTracingObserver, context.Context) {
	newCtx, span := s.startTraceSpan(ctx, spanNameQuery, map[string]string{
		spanAttrOperation: operationQuery,
		spanAttrSelection: selection,
	})

	return &queryTracingObserver{s: s, span: span}, newCtx
}

func (s *SnapshotStore) startPersistTracing(
	ctx context.Context,
	snapshots []auditstore.CdoSnapshot,
) (*persistTracingObserver, context.Context) {

	attrs := map[string]string{
		spanAttrOperation:     operationPersist,
		spanAttrSnapshotCount: fmt.Sprintf("%d", len(snapshots)),
	}

	if len(snapshots) > 0 && snapshots[0].GlobalID != nil {
		attrs[spanAttrGlobalID] = snapshots[0].GlobalID.Value()
	}

	newCtx, span := s.startTraceSpan(ctx, spanNamePersist, attrs)

	return &persistTracingObserver{s: s, span: span}, newCtx
}

// finishSuccess completes the query tracing span for successful operations.
func (qto *queryTracingObserver) finishSuccess(snapshotCount int, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(statusSuccess)
	qto.span.AddAttribute(spanAttrSnapshotCount, fmt.Sprintf("%d", snapshotCount))
	qto.span.AddAttribute(spanAttrDurationMS, qto.s.formatDuration(duration))

	qto.s.finishTraceSpan(qto.span, statusSuccess, map[string]string{
		spanAttrSnapshotCount: fmt.Sprintf("%d", snapshotCount),
	})
}

// finishError completes the query tracing span with error details.
func (qto *queryTracingObserver) finishError(errorType string, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.span.SetStatus(statusError)
	qto.span.AddAttribute(spanAttrErrorType, errorType)
	qto.span.AddAttribute(spanAttrDurationMS, qto.s.formatDuration(duration))

	qto.s.finishTraceSpan(qto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// finishSuccess completes the persist tracing span for successful operations.
func (pto *persistTracingObserver) finishSuccess(rowsAffected int64, duration time.Duration) {
	if pto.span == nil {
		return
	}

	pto.span.SetStatus(statusSuccess)
	pto.span.AddAttribute(spanAttrRowsAffected, fmt.Sprintf("%d", rowsAffected))
	pto.span.AddAttribute(spanAttrDurationMS, pto.s.formatDuration(duration))

	pto.s.finishTraceSpan(pto.span, statusSuccess, map[string]string{
		spanAttrRowsAffected: fmt.Sprintf("%d", rowsAffected),
	})
}

// finishError completes the persist tracing span with error details.
func (pto *persistTracingObserver) finishError(errorType string, duration time.Duration) {
	if pto.span == nil {
		return
	}

	pto.span.SetStatus(statusError)
	pto.span.AddAttribute(spanAttrErrorType, errorType)
	pto.span.AddAttribute(spanAttrDurationMS, pto.s.formatDuration(duration))

	pto.s.finishTraceSpan(pto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// formatDuration formats duration for span attributes.
func (s *SnapshotStore) formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", s.toMilliseconds(duration))
}
