package memoryengine

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
)

const (
	logMsgSnapshotsPersisted  = "auditstore: snapshots persisted"
	logMsgConcurrencyConflict = "auditstore: concurrency conflict detected"
	logAttrSnapshotCount      = "snapshot_count"
	logAttrGlobalID           = "global_id"
	logAttrVersion            = "version"
)

var _ history.SnapshotRepository = (*SnapshotStore)(nil)

// SnapshotStore keeps snapshots in memory. It is safe for concurrent use.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots []auditstore.CdoSnapshot // ascending sequence number
	byID      map[string][]int         // global id value -> positions in snapshots
	logger    auditstore.Logger
}

// Option defines a functional option for configuring the SnapshotStore.
type Option func(*SnapshotStore) error

// WithLogger sets the logger for the SnapshotStore.
func WithLogger(logger auditstore.Logger) Option {
	return func(s *SnapshotStore) error {
		s.logger = logger
		return nil
	}
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore(options ...Option) (*SnapshotStore, error) {
	store := &SnapshotStore{byID: make(map[string][]int)}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Persist stores all snapshots or none of them.
func (s *SnapshotStore) Persist(_ context.Context, snapshots ...auditstore.CdoSnapshot) error {
	if len(snapshots) == 0 {
		return auditstore.ErrEmptySnapshotBatch
	}

	for _, snapshot := range snapshots {
		if err := snapshot.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]map[auditstore.VersionUint]struct{}, len(snapshots))

	for _, snapshot := range snapshots {
		id := snapshot.GlobalID.Value()

		_, inBatch := seen[id][snapshot.Version]
		if inBatch || s.hasVersion(id, snapshot.Version) {
			if s.logger != nil {
				s.logger.Info(logMsgConcurrencyConflict, logAttrGlobalID, id, logAttrVersion, snapshot.Version)
			}

			return auditstore.ErrConcurrencyConflict
		}

		if seen[id] == nil {
			seen[id] = make(map[auditstore.VersionUint]struct{})
		}
		seen[id][snapshot.Version] = struct{}{}
	}

	for _, snapshot := range snapshots {
		stored := clone(snapshot)
		stored.Commit.SequenceNumber = auditstore.SequenceNumberUint(len(s.snapshots) + 1)

		id := stored.GlobalID.Value()
		s.byID[id] = append(s.byID[id], len(s.snapshots))
		s.snapshots = append(s.snapshots, stored)
	}

	if s.logger != nil {
		s.logger.Info(logMsgSnapshotsPersisted, logAttrSnapshotCount, len(snapshots))
	}

	return nil
}

func (s *SnapshotStore) hasVersion(id string, version auditstore.VersionUint) bool {
	for _, position := range s.byID[id] {
		if s.snapshots[position].Version == version {
			return true
		}
	}

	return false
}

func (s *SnapshotStore) GetLatest(_ context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *auditstore.CdoSnapshot

	for _, position := range s.byID[id.Value()] {
		if latest == nil || s.snapshots[position].Version > latest.Version {
			snapshot := clone(s.snapshots[position])
			latest = &snapshot
		}
	}

	return latest, nil
}

func (s *SnapshotStore) GetSnapshot(
	_ context.Context,
	id auditstore.GlobalID,
	version auditstore.VersionUint,
) (*auditstore.CdoSnapshot, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, position := range s.byID[id.Value()] {
		if s.snapshots[position].Version == version {
			snapshot := clone(s.snapshots[position])
			return &snapshot, nil
		}
	}

	return nil, nil
}

func (s *SnapshotStore) GetSnapshots(_ context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error) {
	return s.selectNewestFirst(params, func(auditstore.CdoSnapshot) bool { return true }), nil
}

func (s *SnapshotStore) GetStateHistory(
	_ context.Context,
	id auditstore.GlobalID,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	value := id.Value()

	return s.selectNewestFirst(params, func(snapshot auditstore.CdoSnapshot) bool {
		return snapshot.GlobalID.Value() == value
	}), nil
}

func (s *SnapshotStore) GetStateHistoryForTypes(
	_ context.Context,
	typeNames []string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return s.selectNewestFirst(params, func(snapshot auditstore.CdoSnapshot) bool {
		return slices.Contains(typeNames, snapshot.GlobalID.TypeName())
	}), nil
}

func (s *SnapshotStore) GetValueObjectStateHistory(
	_ context.Context,
	ownerTypeName string,
	path string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return s.selectNewestFirst(params, func(snapshot auditstore.CdoSnapshot) bool {
		id, ok := snapshot.GlobalID.(auditstore.ValueObjectID)

		return ok && id.Owner().TypeName() == ownerTypeName && id.Fragment() == path
	}), nil
}

func (s *SnapshotStore) selectNewestFirst(
	params auditstore.QueryParams,
	selected func(auditstore.CdoSnapshot) bool,
) []auditstore.CdoSnapshot {

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]auditstore.CdoSnapshot, 0)
	skipped := uint(0)

	for i := len(s.snapshots) - 1; i >= 0; i-- {
		snapshot := s.snapshots[i]

		if !selected(snapshot) || !params.Matches(snapshot) {
			continue
		}

		if skipped < params.Skip() {
			skipped++
			continue
		}

		result = append(result, clone(snapshot))

		if uint(len(result)) >= params.Limit() {
			break
		}
	}

	return result
}

// clone keeps stored snapshots independent of caller-owned slices and maps.
func clone(snapshot auditstore.CdoSnapshot) auditstore.CdoSnapshot {
	snapshot.State = slices.Clone(snapshot.State)
	snapshot.ChangedProperties = slices.Clone(snapshot.ChangedProperties)
	snapshot.Commit.Properties = maps.Clone(snapshot.Commit.Properties)

	return snapshot
}
