package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
	"github.com/AntonStoeckl/auditstore-go/auditstore/postgresengine/internal/adapters"
)

const (
	defaultSnapshotTableName     = "snapshots"
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgBuildSnapshotFailed    = "failed to build snapshot from database row"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBExecFailed           = "database execution failed during snapshot persist"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgQueryCompleted         = "query completed"
	logMsgSnapshotsPersisted     = "snapshots persisted"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "auditstore operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrSelection             = "selection"
	logAttrGlobalID              = "global_id"
	logAttrSnapshotCount         = "snapshot_count"
	logAttrDurationMS            = "duration_ms"
	logAttrRowsAffected          = "rows_affected"
	logAttrConsistency           = "consistency"
	logActionQuery               = "query"
	logActionPersist             = "persist"
	colSequenceNumber            = "sequence_number"
	colGlobalID                  = "global_id"
	colIDKind                    = "id_kind"
	colTypeName                  = "type_name"
	colLocalID                   = "local_id"
	colOwnerTypeName             = "owner_type_name"
	colOwnerLocalID              = "owner_local_id"
	colFragment                  = "fragment"
	colVersion                   = "version"
	colSnapshotType              = "snapshot_type"
	colState                     = "state"
	colChangedProperties         = "changed_properties"
	colCommitID                  = "commit_id"
	colCommitAuthor              = "commit_author"
	colCommitDate                = "commit_date"
	colCommitProperties          = "commit_properties"
	dialectPostgres              = "postgres"
	castJsonb                    = "?::jsonb"
	castUUID                     = "?::uuid"
	castText                     = "TEXT"
	jsonbContains                = "? @> ?::jsonb"
	selectionLatest              = "latest"
	selectionSnapshot            = "snapshot"
	selectionAll                 = "all"
	selectionStateHistory        = "state_history"
	selectionTypes               = "types"
	selectionValueObject         = "value_object"
)

var _ history.SnapshotRepository = (*SnapshotStore)(nil)

type (
	sqlQueryString    = string
	sqlArgs           = []any
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// SnapshotStore persists and reads snapshots in a single Postgres table.
//
// Every read that is not a single-object lookup returns snapshots newest first,
// i.e. ordered by descending sequence number, with QueryParams filters, skip, and limit applied in SQL.
type SnapshotStore struct {
	db                adapters.DBAdapter
	snapshotTableName string
	logger            auditstore.Logger
	metricsCollector  auditstore.MetricsCollector
	tracingCollector  auditstore.TracingCollector
	contextualLogger  auditstore.ContextualLogger
}

type queryResultRow struct {
	record            auditstore.SnapshotRecord
	changedProperties []byte
	commitProperties  []byte
	state             []byte
}

// NewSnapshotStoreFromPGXPool creates a new SnapshotStore using a pgx Pool with optional configuration.
func NewSnapshotStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*SnapshotStore, error) {
	if db == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewPGXAdapter(db), options...)
}

// NewSnapshotStoreFromPGXPoolAndReplica creates a new SnapshotStore using a primary and a replica pgx Pool.
// The replica serves reads whose context was prepared with auditstore.WithEventualConsistency.
func NewSnapshotStoreFromPGXPoolAndReplica(
	db *pgxpool.Pool,
	replica *pgxpool.Pool,
	options ...Option,
) (*SnapshotStore, error) {

	if db == nil || replica == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewSnapshotStoreFromSQLDB creates a new SnapshotStore using a sql.DB with optional configuration.
func NewSnapshotStoreFromSQLDB(db *sql.DB, options ...Option) (*SnapshotStore, error) {
	if db == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewSQLAdapter(db), options...)
}

// NewSnapshotStoreFromSQLDBAndReplica creates a new SnapshotStore using a primary and a replica sql.DB.
func NewSnapshotStoreFromSQLDBAndReplica(db *sql.DB, replica *sql.DB, options ...Option) (*SnapshotStore, error) {
	if db == nil || replica == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewSQLAdapterWithReplica(db, replica), options...)
}

// NewSnapshotStoreFromSQLX creates a new SnapshotStore using a sqlx.DB with optional configuration.
func NewSnapshotStoreFromSQLX(db *sqlx.DB, options ...Option) (*SnapshotStore, error) {
	if db == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewSQLXAdapter(db), options...)
}

// NewSnapshotStoreFromSQLXAndReplica creates a new SnapshotStore using a primary and a replica sqlx.DB.
func NewSnapshotStoreFromSQLXAndReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*SnapshotStore, error) {
	if db == nil || replica == nil {
		return nil, auditstore.ErrNilDatabaseConnection
	}

	return newSnapshotStore(adapters.NewSQLXAdapterWithReplica(db, replica), options...)
}

func newSnapshotStore(db adapters.DBAdapter, options ...Option) (*SnapshotStore, error) {
	store := &SnapshotStore{
		db:                db,
		snapshotTableName: defaultSnapshotTableName,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

/***** Reads *****/

// GetLatest returns the snapshot with the highest version of the object, nil if there is none.
func (s *SnapshotStore) GetLatest(ctx context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error) {
	selectStmt := s.selectSnapshots().
		Where(goqu.C(colGlobalID).Eq(id.Value())).
		Order(goqu.C(colVersion).Desc()).
		Limit(1)

	snapshots, err := s.query(ctx, selectionLatest, selectStmt)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}

	return &snapshots[0], nil
}

// GetSnapshot returns the given version of the object, nil if it does not exist.
func (s *SnapshotStore) GetSnapshot(
	ctx context.Context,
	id auditstore.GlobalID,
	version auditstore.VersionUint,
) (*auditstore.CdoSnapshot, error) {

	selectStmt := s.selectSnapshots().
		Where(goqu.C(colGlobalID).Eq(id.Value()), goqu.C(colVersion).Eq(version)).
		Limit(1)

	snapshots, err := s.query(ctx, selectionSnapshot, selectStmt)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}

	return &snapshots[0], nil
}

func (s *SnapshotStore) GetSnapshots(ctx context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error) {
	return s.queryNewestFirst(ctx, selectionAll, params)
}

func (s *SnapshotStore) GetStateHistory(
	ctx context.Context,
	id auditstore.GlobalID,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return s.queryNewestFirst(ctx, selectionStateHistory, params, goqu.C(colGlobalID).Eq(id.Value()))
}

func (s *SnapshotStore) GetStateHistoryForTypes(
	ctx context.Context,
	typeNames []string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	if len(typeNames) == 0 {
		return []auditstore.CdoSnapshot{}, nil
	}

	return s.queryNewestFirst(ctx, selectionTypes, params, goqu.C(colTypeName).In(typeNames))
}

func (s *SnapshotStore) GetValueObjectStateHistory(
	ctx context.Context,
	ownerTypeName string,
	path string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return s.queryNewestFirst(
		ctx,
		selectionValueObject,
		params,
		goqu.C(colIDKind).Eq(string(auditstore.ValueObjectIDKind)),
		goqu.C(colOwnerTypeName).Eq(ownerTypeName),
		goqu.C(colFragment).Eq(path),
	)
}

func (s *SnapshotStore) queryNewestFirst(
	ctx context.Context,
	selection string,
	params auditstore.QueryParams,
	predicates ...exp.Expression,
) ([]auditstore.CdoSnapshot, error) {

	selectStmt, err := s.addParams(s.selectSnapshots().Where(predicates...), params)
	if err != nil {
		return nil, err
	}

	selectStmt = selectStmt.
		Order(goqu.C(colSequenceNumber).Desc()).
		Limit(params.Limit())

	if params.Skip() > 0 {
		selectStmt = selectStmt.Offset(params.Skip())
	}

	return s.query(ctx, selection, selectStmt)
}

// query runs a select statement with logging, metrics, and tracing.
func (s *SnapshotStore) query(
	ctx context.Context,
	selection string,
	selectStmt *goqu.SelectDataset,
) ([]auditstore.CdoSnapshot, error) {

	tracer, ctx := s.startQueryTracing(ctx, selection)
	metrics := s.startQueryMetrics(ctx, selection)
	start := time.Now()

	sqlQuery, args, buildQueryErr := s.toSQL(selectStmt)
	if buildQueryErr != nil {
		s.logError(logMsgBuildSelectQueryFailed, buildQueryErr, logAttrSelection, selection)
		s.logErrorContext(ctx, logMsgBuildSelectQueryFailed, buildQueryErr, logAttrSelection, selection)
		metrics.recordError(errorTypeBuildQuery, time.Since(start))
		tracer.finishError(errorTypeBuildQuery, time.Since(start))

		return nil, buildQueryErr
	}

	rows, duration, queryErr := s.executeQuery(ctx, sqlQuery, args)
	if queryErr != nil {
		metrics.recordError(errorTypeDatabaseQuery, duration)
		tracer.finishError(errorTypeDatabaseQuery, duration)

		return nil, queryErr
	}
	defer s.closeRows(ctx, rows)

	snapshots, errorType, scanErr := s.processQueryResults(ctx, rows)
	if scanErr != nil {
		metrics.recordError(errorType, time.Since(start))
		tracer.finishError(errorType, time.Since(start))

		return nil, scanErr
	}

	duration = time.Since(start)
	s.logOperation(
		logMsgQueryCompleted,
		logAttrSelection, selection,
		logAttrSnapshotCount, len(snapshots),
		logAttrDurationMS, s.toMilliseconds(duration),
	)
	s.logOperationContext(
		ctx,
		logMsgQueryCompleted,
		logAttrSelection, selection,
		logAttrSnapshotCount, len(snapshots),
		logAttrDurationMS, s.toMilliseconds(duration),
		logAttrConsistency, auditstore.GetConsistencyLevel(ctx).String(),
	)
	metrics.recordSuccess(len(snapshots), duration)
	tracer.finishSuccess(len(snapshots), duration)

	return snapshots, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (s *SnapshotStore) executeQuery(ctx context.Context, sqlQuery string, args sqlArgs) (
	adapters.DBRows,
	queryDuration,
	error,
) {

	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, logActionQuery, duration)
	s.logQueryWithDurationContext(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		s.logError(logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		s.logErrorContext(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, duration, errors.Join(auditstore.ErrQueryingSnapshotsFailed, queryErr)
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *SnapshotStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}

		if s.contextualLogger != nil {
			s.contextualLogger.WarnContext(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// processQueryResults converts database rows to snapshots.
func (s *SnapshotStore) processQueryResults(ctx context.Context, rows adapters.DBRows) (
	[]auditstore.CdoSnapshot,
	string,
	error,
) {

	snapshots := make([]auditstore.CdoSnapshot, 0)

	for rows.Next() {
		row := queryResultRow{}

		rowScanErr := rows.Scan(
			&row.record.SequenceNumber,
			&row.record.GlobalID,
			&row.record.IDKind,
			&row.record.TypeName,
			&row.record.LocalID,
			&row.record.OwnerTypeName,
			&row.record.OwnerLocalID,
			&row.record.Fragment,
			&row.record.Version,
			&row.record.SnapshotType,
			&row.state,
			&row.changedProperties,
			&row.record.CommitID,
			&row.record.CommitAuthor,
			&row.record.CommitDate,
			&row.commitProperties,
		)
		if rowScanErr != nil {
			s.logError(logMsgScanRowFailed, rowScanErr)
			s.logErrorContext(ctx, logMsgScanRowFailed, rowScanErr)

			return nil, errorTypeRowScan, errors.Join(auditstore.ErrScanningDBRowFailed, rowScanErr)
		}

		snapshot, buildErr := row.toSnapshot()
		if buildErr != nil {
			s.logError(logMsgBuildSnapshotFailed, buildErr, logAttrGlobalID, row.record.GlobalID)
			s.logErrorContext(ctx, logMsgBuildSnapshotFailed, buildErr, logAttrGlobalID, row.record.GlobalID)

			return nil, errorTypeBuildSnapshot, buildErr
		}

		snapshots = append(snapshots, snapshot)
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		s.logError(logMsgScanRowFailed, iterationErr)
		s.logErrorContext(ctx, logMsgScanRowFailed, iterationErr)

		return nil, errorTypeRowScan, errors.Join(auditstore.ErrScanningDBRowFailed, iterationErr)
	}

	return snapshots, "", nil
}

func (r queryResultRow) toSnapshot() (auditstore.CdoSnapshot, error) {
	r.record.State = r.state

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(r.changedProperties, &r.record.ChangedProperties); err != nil {
		return auditstore.CdoSnapshot{}, errors.Join(auditstore.ErrInvalidSnapshotRecord, err)
	}

	if len(r.commitProperties) > 0 {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(r.commitProperties, &r.record.CommitProperties); err != nil {
			return auditstore.CdoSnapshot{}, errors.Join(auditstore.ErrInvalidSnapshotRecord, err)
		}
	}

	if len(r.record.CommitProperties) == 0 {
		r.record.CommitProperties = nil
	}

	return r.record.ToSnapshot()
}

/***** Persist *****/

// Persist stores all snapshots in one INSERT statement, so either all of them or none are stored.
//
// A snapshot with an already stored (global id, version) pair violates the unique constraint of the table
// and fails the whole batch with auditstore.ErrConcurrencyConflict.
func (s *SnapshotStore) Persist(ctx context.Context, snapshots ...auditstore.CdoSnapshot) error {
	tracer, ctx := s.startPersistTracing(ctx, snapshots)
	metrics := s.startPersistMetrics(ctx)
	start := time.Now()

	if len(snapshots) == 0 {
		metrics.recordError(errorTypeValidation, time.Since(start))
		tracer.finishError(errorTypeValidation, time.Since(start))

		return auditstore.ErrEmptySnapshotBatch
	}

	sqlQuery, args, buildQueryErr := s.buildInsertQuery(snapshots)
	if buildQueryErr != nil {
		s.logError(logMsgBuildInsertQueryFailed, buildQueryErr, logAttrSnapshotCount, len(snapshots))
		s.logErrorContext(ctx, logMsgBuildInsertQueryFailed, buildQueryErr, logAttrSnapshotCount, len(snapshots))
		metrics.recordError(errorTypeBuildQuery, time.Since(start))
		tracer.finishError(errorTypeBuildQuery, time.Since(start))

		return buildQueryErr
	}

	rowsAffected, duration, execErr := s.executePersistQuery(ctx, sqlQuery, args)
	if execErr != nil {
		if errors.Is(execErr, auditstore.ErrConcurrencyConflict) {
			metrics.recordConcurrencyConflict()
			metrics.recordError(errorTypeConcurrencyConflict, duration)
			tracer.finishError(errorTypeConcurrencyConflict, duration)

			return execErr
		}

		metrics.recordError(errorTypeDatabaseExec, duration)
		tracer.finishError(errorTypeDatabaseExec, duration)

		return execErr
	}

	if err := s.validatePersistResult(ctx, rowsAffected, len(snapshots)); err != nil {
		metrics.recordConcurrencyConflict()
		metrics.recordError(errorTypeConcurrencyConflict, duration)
		tracer.finishError(errorTypeConcurrencyConflict, duration)

		return err
	}

	s.logOperation(
		logMsgSnapshotsPersisted,
		logAttrSnapshotCount, len(snapshots),
		logAttrDurationMS, s.toMilliseconds(duration),
	)
	s.logOperationContext(
		ctx,
		logMsgSnapshotsPersisted,
		logAttrSnapshotCount, len(snapshots),
		logAttrDurationMS, s.toMilliseconds(duration),
	)
	metrics.recordSuccess(len(snapshots), duration)
	tracer.finishSuccess(rowsAffected, duration)

	return nil
}

// executePersistQuery executes the insert and returns rows affected and duration.
func (s *SnapshotStore) executePersistQuery(ctx context.Context, sqlQuery string, args sqlArgs) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery, args...)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, logActionPersist, duration)
	s.logQueryWithDurationContext(ctx, sqlQuery, logActionPersist, duration)

	if execErr != nil {
		if adapters.IsUniqueViolation(execErr) {
			s.logOperation(logMsgConcurrencyConflict, logAttrError, execErr.Error())
			s.logOperationContext(ctx, logMsgConcurrencyConflict, logAttrError, execErr.Error())

			return 0, duration, errors.Join(auditstore.ErrConcurrencyConflict, execErr)
		}

		s.logError(logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		s.logErrorContext(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)

		return 0, duration, errors.Join(auditstore.ErrPersistingSnapshotsFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(logMsgRowsAffectedFailed, rowsAffectedErr)
		s.logErrorContext(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)

		return 0, duration, errors.Join(auditstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// validatePersistResult treats a partially applied insert as a concurrency conflict.
func (s *SnapshotStore) validatePersistResult(ctx context.Context, rowsAffected int64, expectedCount int) error {
	if rowsAffected < int64(expectedCount) {
		s.logOperation(logMsgConcurrencyConflict, logAttrSnapshotCount, expectedCount, logAttrRowsAffected, rowsAffected)
		s.logOperationContext(ctx, logMsgConcurrencyConflict, logAttrSnapshotCount, expectedCount, logAttrRowsAffected, rowsAffected)

		return auditstore.ErrConcurrencyConflict
	}

	return nil
}

/***** Query building *****/

func (s *SnapshotStore) selectSnapshots() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(s.snapshotTableName).
		Prepared(true).
		Select(
			colSequenceNumber,
			colGlobalID,
			colIDKind,
			colTypeName,
			colLocalID,
			colOwnerTypeName,
			colOwnerLocalID,
			colFragment,
			colVersion,
			colSnapshotType,
			colState,
			colChangedProperties,
			goqu.Cast(goqu.C(colCommitID), castText).As(colCommitID),
			colCommitAuthor,
			colCommitDate,
			colCommitProperties,
		)
}

// addParams translates the QueryParams filters into WHERE conditions.
func (s *SnapshotStore) addParams(selectStmt *goqu.SelectDataset, params auditstore.QueryParams) (*goqu.SelectDataset, error) {
	conditions := make([]exp.Expression, 0)

	if !params.From().IsZero() {
		conditions = append(conditions, goqu.C(colCommitDate).Gte(params.From()))
	}

	if !params.To().IsZero() {
		conditions = append(conditions, goqu.C(colCommitDate).Lte(params.To()))
	}

	if len(params.CommitIDs()) > 0 {
		commitIDs := make([]any, 0, len(params.CommitIDs()))
		for _, commitID := range params.CommitIDs() {
			commitIDs = append(commitIDs, goqu.L(castUUID, commitID.String()))
		}
		conditions = append(conditions, goqu.C(colCommitID).In(commitIDs...))
	}

	if params.Version() > 0 {
		conditions = append(conditions, goqu.C(colVersion).Eq(params.Version()))
	}

	if params.Author() != "" {
		conditions = append(conditions, goqu.C(colCommitAuthor).Eq(params.Author()))
	}

	if params.ChangedProperty() != "" {
		property, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal([]string{params.ChangedProperty()})
		if err != nil {
			return nil, errors.Join(auditstore.ErrBuildingQueryFailed, err)
		}
		conditions = append(conditions, goqu.L(jsonbContains, goqu.C(colChangedProperties), string(property)))
	}

	if len(conditions) == 0 {
		return selectStmt, nil
	}

	return selectStmt.Where(conditions...), nil
}

func (s *SnapshotStore) buildInsertQuery(snapshots []auditstore.CdoSnapshot) (sqlQueryString, sqlArgs, error) {
	rows := make([][]any, 0, len(snapshots))

	for _, snapshot := range snapshots {
		if err := snapshot.Validate(); err != nil {
			return "", nil, err
		}

		record := auditstore.SnapshotToRecord(snapshot)

		changedProperties, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(record.ChangedProperties)
		if err != nil {
			return "", nil, errors.Join(auditstore.ErrBuildingQueryFailed, err)
		}

		commitProperties := []byte("{}")
		if len(record.CommitProperties) > 0 {
			commitProperties, err = jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(record.CommitProperties)
			if err != nil {
				return "", nil, errors.Join(auditstore.ErrBuildingQueryFailed, err)
			}
		}

		rows = append(rows, []any{
			record.GlobalID,
			record.IDKind,
			record.TypeName,
			record.LocalID,
			record.OwnerTypeName,
			record.OwnerLocalID,
			record.Fragment,
			record.Version,
			record.SnapshotType,
			goqu.L(castJsonb, string(record.State)),
			goqu.L(castJsonb, string(changedProperties)),
			goqu.L(castUUID, record.CommitID),
			record.CommitAuthor,
			record.CommitDate,
			goqu.L(castJsonb, string(commitProperties)),
		})
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.snapshotTableName).
		Prepared(true).
		Cols(
			colGlobalID,
			colIDKind,
			colTypeName,
			colLocalID,
			colOwnerTypeName,
			colOwnerLocalID,
			colFragment,
			colVersion,
			colSnapshotType,
			colState,
			colChangedProperties,
			colCommitID,
			colCommitAuthor,
			colCommitDate,
			colCommitProperties,
		).
		Vals(rows...)

	sqlQuery, args, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(auditstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

func (s *SnapshotStore) toSQL(selectStmt *goqu.SelectDataset) (sqlQueryString, sqlArgs, error) {
	sqlQuery, args, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(auditstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}
