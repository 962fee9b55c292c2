package history

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

var ErrNilSnapshotReader = errors.New("snapshot reader must not be nil")

const (
	logMsgPredecessorMissing = "auditstore: predecessor snapshot missing, skipping its changes"
	logAttrGlobalID          = "global_id"
	logAttrVersion           = "version"
)

// ExtendedRepository serves the query.Repository operations on top of a SnapshotReader.
// Changes are derived from each snapshot and its predecessor.
type ExtendedRepository struct {
	snapshots        SnapshotReader
	logger           auditstore.Logger
	newObjectChanges bool
}

// Option defines a functional option for configuring the ExtendedRepository.
type Option func(*ExtendedRepository) error

// WithLogger sets the logger, it receives warnings about snapshots whose predecessor is missing.
func WithLogger(logger auditstore.Logger) Option {
	return func(r *ExtendedRepository) error {
		r.logger = logger
		return nil
	}
}

// WithNewObjectChanges makes the id, type, and value object change histories include
// NewObject changes plus the initial property values of created objects. It is off by default.
func WithNewObjectChanges(include bool) Option {
	return func(r *ExtendedRepository) error {
		r.newObjectChanges = include
		return nil
	}
}

// NewExtendedRepository creates an ExtendedRepository.
func NewExtendedRepository(snapshots SnapshotReader, options ...Option) (*ExtendedRepository, error) {
	if snapshots == nil {
		return nil, ErrNilSnapshotReader
	}

	repo := &ExtendedRepository{snapshots: snapshots}

	for _, option := range options {
		if err := option(repo); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

/***** State *****/

func (r *ExtendedRepository) GetLatest(ctx context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error) {
	return r.snapshots.GetLatest(ctx, id)
}

func (r *ExtendedRepository) GetSnapshots(ctx context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error) {
	return r.snapshots.GetSnapshots(ctx, params)
}

func (r *ExtendedRepository) GetStateHistory(
	ctx context.Context,
	id auditstore.GlobalID,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return r.snapshots.GetStateHistory(ctx, id, params)
}

func (r *ExtendedRepository) GetStateHistoryForTypes(
	ctx context.Context,
	types []metamodel.ManagedType,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return r.snapshots.GetStateHistoryForTypes(ctx, TypeNames(types), params)
}

func (r *ExtendedRepository) GetValueObjectStateHistory(
	ctx context.Context,
	owner *metamodel.EntityType,
	path string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return r.snapshots.GetValueObjectStateHistory(ctx, owner.Name(), path, params)
}

/***** Changes *****/

func (r *ExtendedRepository) GetChanges(
	ctx context.Context,
	newObjectChanges bool,
	params auditstore.QueryParams,
) (diff.Changes, error) {

	snapshots, err := r.snapshots.GetSnapshots(ctx, params)
	if err != nil {
		return nil, err
	}

	return r.changesOf(ctx, snapshots, newObjectChanges)
}

func (r *ExtendedRepository) GetChangeHistory(
	ctx context.Context,
	id auditstore.GlobalID,
	params auditstore.QueryParams,
) (diff.Changes, error) {

	snapshots, err := r.snapshots.GetStateHistory(ctx, id, params)
	if err != nil {
		return nil, err
	}

	return r.changesOf(ctx, snapshots, r.newObjectChanges)
}

func (r *ExtendedRepository) GetChangeHistoryForTypes(
	ctx context.Context,
	types []metamodel.ManagedType,
	params auditstore.QueryParams,
) (diff.Changes, error) {

	snapshots, err := r.snapshots.GetStateHistoryForTypes(ctx, TypeNames(types), params)
	if err != nil {
		return nil, err
	}

	return r.changesOf(ctx, snapshots, r.newObjectChanges)
}

func (r *ExtendedRepository) GetValueObjectChangeHistory(
	ctx context.Context,
	owner *metamodel.EntityType,
	path string,
	params auditstore.QueryParams,
) (diff.Changes, error) {

	snapshots, err := r.snapshots.GetValueObjectStateHistory(ctx, owner.Name(), path, params)
	if err != nil {
		return nil, err
	}

	return r.changesOf(ctx, snapshots, r.newObjectChanges)
}

type snapshotKey struct {
	id      string
	version auditstore.VersionUint
}

// changesOf keeps the order of the snapshots, so changes come newest first.
func (r *ExtendedRepository) changesOf(
	ctx context.Context,
	snapshots []auditstore.CdoSnapshot,
	newObjectChanges bool,
) (diff.Changes, error) {

	fetched := make(map[snapshotKey]auditstore.CdoSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		fetched[snapshotKey{id: snapshot.GlobalID.Value(), version: snapshot.Version}] = snapshot
	}

	changes := make(diff.Changes, 0, len(snapshots))

	for _, snapshot := range snapshots {
		previous, found, err := r.predecessor(ctx, snapshot, fetched)
		if err != nil {
			return nil, err
		}

		if !found {
			if r.logger != nil {
				r.logger.Warn(
					logMsgPredecessorMissing,
					logAttrGlobalID, snapshot.GlobalID.Value(),
					logAttrVersion, snapshot.Version,
				)
			}

			continue
		}

		snapshotChanges, err := diff.DiffSnapshots(previous, snapshot, newObjectChanges)
		if err != nil {
			return nil, err
		}

		changes = append(changes, snapshotChanges...)
	}

	return changes, nil
}

// predecessor returns nil and found for the first version of an object.
func (r *ExtendedRepository) predecessor(
	ctx context.Context,
	snapshot auditstore.CdoSnapshot,
	fetched map[snapshotKey]auditstore.CdoSnapshot,
) (*auditstore.CdoSnapshot, bool, error) {

	if snapshot.Version <= 1 {
		return nil, true, nil
	}

	key := snapshotKey{id: snapshot.GlobalID.Value(), version: snapshot.Version - 1}
	if previous, ok := fetched[key]; ok {
		return &previous, true, nil
	}

	previous, err := r.snapshots.GetSnapshot(ctx, snapshot.GlobalID, snapshot.Version-1)
	if err != nil {
		return nil, false, err
	}

	return previous, previous != nil, nil
}

// TypeNames returns the names of the managed types in order.
func TypeNames(types []metamodel.ManagedType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name())
	}

	return names
}
