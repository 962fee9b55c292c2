package query

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

const (
	operationQueryForSnapshots      = "QueryForSnapshots"
	operationQueryForChanges        = "QueryForChanges"
	operationQueryForLatestSnapshot = "QueryForLatestSnapshot"
)

const (
	spanNameQueryForSnapshots      = "auditstore.query_for_snapshots"
	spanNameQueryForChanges        = "auditstore.query_for_changes"
	spanNameQueryForLatestSnapshot = "auditstore.query_for_latest_snapshot"
)

const (
	spanAttrOperation   = "operation"
	spanAttrQueryKind   = "query_kind"
	spanAttrResultCount = "result_count"
	spanAttrDurationMS  = "duration_ms"
	spanAttrErrorType   = "error_type"
)

const (
	metricQueryDuration = "auditstore_query_duration_seconds"
	metricQueryResults  = "auditstore_query_results_total"
	metricQueryErrors   = "auditstore_query_errors_total"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

const (
	errorTypeMalformedQuery = "malformed_query"
	errorTypeIdentity       = "identity_resolution"
	errorTypeTypeResolution = "type_resolution"
	errorTypeRepository     = "repository"
)

const (
	logMsgDispatching     = "auditstore: dispatching query"
	logMsgQueryCompleted  = "auditstore: query completed"
	logMsgQueryFailed     = "auditstore: query failed"
	logAttrOperation      = "operation"
	logAttrQuery          = "query"
	logAttrQueryKind      = "query_kind"
	logAttrResultCount    = "result_count"
	logAttrDurationMS     = "duration_ms"
	logAttrError          = "error"
	logAttrErrorType      = "error_type"
	logAttrLatestNotFound = "not_found"
)

// Repository is the persistence boundary the Runner dispatches to. All errors are passed through unchanged.
type Repository interface {
	GetLatest(ctx context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error)
	GetSnapshots(ctx context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)
	GetStateHistory(ctx context.Context, id auditstore.GlobalID, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)
	GetStateHistoryForTypes(ctx context.Context, types []metamodel.ManagedType, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)
	GetValueObjectStateHistory(ctx context.Context, owner *metamodel.EntityType, path string, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)
	GetChanges(ctx context.Context, newObjectChanges bool, params auditstore.QueryParams) (diff.Changes, error)
	GetChangeHistory(ctx context.Context, id auditstore.GlobalID, params auditstore.QueryParams) (diff.Changes, error)
	GetChangeHistoryForTypes(ctx context.Context, types []metamodel.ManagedType, params auditstore.QueryParams) (diff.Changes, error)
	GetValueObjectChangeHistory(ctx context.Context, owner *metamodel.EntityType, path string, params auditstore.QueryParams) (diff.Changes, error)
}

// IdentityFactory turns id descriptions and live instances into global ids and registers value object paths.
type IdentityFactory interface {
	CreateFromDTO(dto identity.DTO) (auditstore.GlobalID, error)
	CreateInstanceID(instance any) (auditstore.GlobalID, error)
	TouchValueObjectFromPath(owner *metamodel.EntityType, path string) error
}

// TypeResolver maps Go types to managed types.
type TypeResolver interface {
	Resolve(t reflect.Type) (metamodel.ManagedType, error)
}

// Runner dispatches a Query to the matching Repository operation.
//
// It holds no mutable state of its own and is safe for concurrent use
// as long as its collaborators are.
type Runner struct {
	repo             Repository
	identities       IdentityFactory
	types            TypeResolver
	logger           auditstore.Logger
	contextualLogger auditstore.ContextualLogger
	metricsCollector auditstore.MetricsCollector
	tracingCollector auditstore.TracingCollector
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(repo Repository, identities IdentityFactory, types TypeResolver, options ...Option) (*Runner, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}

	if identities == nil {
		return nil, ErrNilIdentityFactory
	}

	if types == nil {
		return nil, ErrNilTypeResolver
	}

	runner := &Runner{
		repo:       repo,
		identities: identities,
		types:      types,
	}

	for _, option := range options {
		if err := option(runner); err != nil {
			return nil, err
		}
	}

	return runner, nil
}

// QueryForSnapshots returns the snapshots selected by the query.
func (r *Runner) QueryForSnapshots(ctx context.Context, q Query) ([]auditstore.CdoSnapshot, error) {
	tracing, ctx := r.startQueryTracing(ctx, spanNameQueryForSnapshots, operationQueryForSnapshots, q.Kind())
	metrics := r.startQueryMetrics(ctx, operationQueryForSnapshots)
	start := time.Now()

	r.logDispatching(ctx, operationQueryForSnapshots, q)

	snapshots, errorType, err := r.snapshots(ctx, q)
	duration := time.Since(start)

	if err != nil {
		r.logFailure(ctx, operationQueryForSnapshots, q, errorType, err)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return nil, err
	}

	r.logCompletion(ctx, operationQueryForSnapshots, q, len(snapshots), duration)
	metrics.recordSuccess(len(snapshots), duration)
	tracing.finishSuccess(len(snapshots), duration)

	return snapshots, nil
}

// QueryForChanges returns the changes selected by the query.
func (r *Runner) QueryForChanges(ctx context.Context, q Query) (diff.Changes, error) {
	tracing, ctx := r.startQueryTracing(ctx, spanNameQueryForChanges, operationQueryForChanges, q.Kind())
	metrics := r.startQueryMetrics(ctx, operationQueryForChanges)
	start := time.Now()

	r.logDispatching(ctx, operationQueryForChanges, q)

	changes, errorType, err := r.changes(ctx, q)
	duration := time.Since(start)

	if err != nil {
		r.logFailure(ctx, operationQueryForChanges, q, errorType, err)
		metrics.recordError(errorType, duration)
		tracing.finishError(errorType, duration)

		return nil, err
	}

	r.logCompletion(ctx, operationQueryForChanges, q, len(changes), duration)
	metrics.recordSuccess(len(changes), duration)
	tracing.finishSuccess(len(changes), duration)

	return changes, nil
}

// QueryForLatestSnapshot returns the latest snapshot of the object described by dto, nil if there is none.
func (r *Runner) QueryForLatestSnapshot(ctx context.Context, dto identity.DTO) (*auditstore.CdoSnapshot, error) {
	tracing, ctx := r.startQueryTracing(ctx, spanNameQueryForLatestSnapshot, operationQueryForLatestSnapshot, KindID)
	metrics := r.startQueryMetrics(ctx, operationQueryForLatestSnapshot)
	start := time.Now()
	q := ByID(dto)

	r.logDispatching(ctx, operationQueryForLatestSnapshot, q)

	id, err := r.identities.CreateFromDTO(dto)
	if err != nil {
		duration := time.Since(start)
		r.logFailure(ctx, operationQueryForLatestSnapshot, q, errorTypeIdentity, err)
		metrics.recordError(errorTypeIdentity, duration)
		tracing.finishError(errorTypeIdentity, duration)

		return nil, err
	}

	snapshot, err := r.repo.GetLatest(ctx, id)
	duration := time.Since(start)

	if err != nil {
		r.logFailure(ctx, operationQueryForLatestSnapshot, q, errorTypeRepository, err)
		metrics.recordError(errorTypeRepository, duration)
		tracing.finishError(errorTypeRepository, duration)

		return nil, err
	}

	count := 0
	if snapshot != nil {
		count = 1
	}

	r.logCompletion(ctx, operationQueryForLatestSnapshot, q, count, duration, logAttrLatestNotFound, snapshot == nil)
	metrics.recordSuccess(count, duration)
	tracing.finishSuccess(count, duration)

	return snapshot, nil
}

/***** Dispatch *****/

// snapshots returns the error type alongside a failure, so that metrics and spans can tell failure sources apart.
func (r *Runner) snapshots(ctx context.Context, q Query) ([]auditstore.CdoSnapshot, string, error) {
	switch filter := q.filter.(type) {
	case AnyDomainObjectFilter:
		return repositoryResult(r.repo.GetSnapshots(ctx, q.params))

	case IDFilter:
		id, err := r.identities.CreateFromDTO(filter.DTO)
		if err != nil {
			return nil, errorTypeIdentity, err
		}

		return repositoryResult(r.repo.GetStateHistory(ctx, id, q.params))

	case InstanceFilter:
		id, err := r.identities.CreateInstanceID(filter.Instance)
		if err != nil {
			return nil, errorTypeIdentity, err
		}

		return repositoryResult(r.repo.GetStateHistory(ctx, id, q.params))

	case ClassFilter:
		types, err := r.resolveTypes(filter.Types)
		if err != nil {
			return nil, errorTypeTypeResolution, err
		}

		return repositoryResult(r.repo.GetStateHistoryForTypes(ctx, types, q.params))

	case ValueObjectOwnerFilter:
		owner, errorType, err := r.touchValueObjectOwner(operationQueryForSnapshots, q, filter)
		if err != nil {
			return nil, errorType, err
		}

		return repositoryResult(r.repo.GetValueObjectStateHistory(ctx, owner, filter.Path, q.params))

	default:
		return nil, errorTypeMalformedQuery, newMalformedQueryError(operationQueryForSnapshots, q, reasonNotSupported)
	}
}

func (r *Runner) changes(ctx context.Context, q Query) (diff.Changes, string, error) {
	switch filter := q.filter.(type) {
	case AnyDomainObjectFilter:
		return repositoryResult(r.repo.GetChanges(ctx, q.newObjectChanges, q.params))

	case IDFilter:
		id, err := r.identities.CreateFromDTO(filter.DTO)
		if err != nil {
			return nil, errorTypeIdentity, err
		}

		return repositoryResult(r.repo.GetChangeHistory(ctx, id, q.params))

	case InstanceFilter:
		id, err := r.identities.CreateInstanceID(filter.Instance)
		if err != nil {
			return nil, errorTypeIdentity, err
		}

		return repositoryResult(r.repo.GetChangeHistory(ctx, id, q.params))

	case ClassFilter:
		types, err := r.resolveTypes(filter.Types)
		if err != nil {
			return nil, errorTypeTypeResolution, err
		}

		return repositoryResult(r.repo.GetChangeHistoryForTypes(ctx, types, q.params))

	case ValueObjectOwnerFilter:
		owner, errorType, err := r.touchValueObjectOwner(operationQueryForChanges, q, filter)
		if err != nil {
			return nil, errorType, err
		}

		return repositoryResult(r.repo.GetValueObjectChangeHistory(ctx, owner, filter.Path, q.params))

	default:
		return nil, errorTypeMalformedQuery, newMalformedQueryError(operationQueryForChanges, q, reasonNotSupported)
	}
}

func (r *Runner) resolveTypes(raw []reflect.Type) ([]metamodel.ManagedType, error) {
	types := make([]metamodel.ManagedType, 0, len(raw))

	for _, t := range raw {
		managedType, err := r.types.Resolve(t)
		if err != nil {
			return nil, err
		}

		types = append(types, managedType)
	}

	return types, nil
}

// touchValueObjectOwner resolves the owner and registers the path. A non-Entity owner is rejected before any touch.
func (r *Runner) touchValueObjectOwner(
	operation string,
	q Query,
	filter ValueObjectOwnerFilter,
) (*metamodel.EntityType, string, error) {
	managedType, err := r.types.Resolve(filter.OwnerType)
	if err != nil {
		return nil, errorTypeTypeResolution, err
	}

	owner, ok := metamodel.AsEntity(managedType)
	if !ok {
		reason := fmt.Sprintf("has owner type {'%s'} which should be an Entity", managedType.Name())

		return nil, errorTypeMalformedQuery, newMalformedQueryError(operation, q, reason)
	}

	if err = r.identities.TouchValueObjectFromPath(owner, filter.Path); err != nil {
		return nil, errorTypeIdentity, err
	}

	return owner, "", nil
}

func repositoryResult[T any](result T, err error) (T, string, error) {
	if err != nil {
		var zero T
		return zero, errorTypeRepository, err
	}

	return result, "", nil
}
