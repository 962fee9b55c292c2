package auditstore

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptySnapshotTableName = errors.New("empty snapshotTableName supplied")
var ErrEmptySnapshotBatch = errors.New("at least one snapshot must be supplied")

var ErrQueryingSnapshotsFailed = errors.New("querying snapshots failed")
var ErrPersistingSnapshotsFailed = errors.New("persisting snapshots failed")
var ErrScanningDBRowFailed = errors.New("scanning the database row failed")
var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
var ErrConcurrencyConflict = errors.New("concurrency conflict detected")

// SequenceNumberUint is the store-wide, strictly increasing position of a persisted snapshot.
type SequenceNumberUint = uint64

// VersionUint is the per-object version of a snapshot, starting at 1.
type VersionUint = uint64
