package history

import (
	"context"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// SnapshotReader reads persisted snapshots.
//
// All list operations return snapshots newest first (descending sequence number),
// filtered by QueryParams.Matches, then paged by skip and limit.
type SnapshotReader interface {
	// GetLatest returns the snapshot with the highest version of an object, nil if there is none.
	GetLatest(ctx context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error)

	// GetSnapshot returns one version of an object, nil if there is none.
	GetSnapshot(ctx context.Context, id auditstore.GlobalID, version auditstore.VersionUint) (*auditstore.CdoSnapshot, error)

	GetSnapshots(ctx context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)
	GetStateHistory(ctx context.Context, id auditstore.GlobalID, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)

	// GetStateHistoryForTypes returns the snapshots of all objects whose global id has one of the type names.
	GetStateHistoryForTypes(ctx context.Context, typeNames []string, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error)

	// GetValueObjectStateHistory returns the snapshots of the value objects at path below all owners of the type.
	GetValueObjectStateHistory(
		ctx context.Context,
		ownerTypeName string,
		path string,
		params auditstore.QueryParams,
	) ([]auditstore.CdoSnapshot, error)
}

// SnapshotWriter persists snapshots.
type SnapshotWriter interface {
	// Persist stores all snapshots atomically and assigns their sequence numbers.
	// It fails with auditstore.ErrConcurrencyConflict if a version of an object already exists.
	Persist(ctx context.Context, snapshots ...auditstore.CdoSnapshot) error
}

// SnapshotRepository is implemented by the storage engines.
type SnapshotRepository interface {
	SnapshotReader
	SnapshotWriter
}
