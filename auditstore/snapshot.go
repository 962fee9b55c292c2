package auditstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrInvalidSnapshotState is returned when the snapshot state is not a valid JSON object.
	ErrInvalidSnapshotState = errors.New("snapshot state json is not valid")

	// ErrNilGlobalID is returned when a snapshot is built without a GlobalID.
	ErrNilGlobalID = errors.New("global id must not be nil")

	// ErrInvalidSnapshotVersion is returned when a snapshot version is 0.
	ErrInvalidSnapshotVersion = errors.New("snapshot version must be greater than 0")

	// ErrInvalidSnapshotType is returned for unknown snapshot types.
	ErrInvalidSnapshotType = errors.New("snapshot type is not valid")

	// ErrDecodingSnapshotStateFailed is returned when the state can not be decoded into property values.
	ErrDecodingSnapshotStateFailed = errors.New("decoding snapshot state failed")
)

// SnapshotType tells whether a snapshot is the first, an intermediate, or the last state of an object.
type SnapshotType string

const (
	InitialSnapshot  SnapshotType = "INITIAL"
	UpdateSnapshot   SnapshotType = "UPDATE"
	TerminalSnapshot SnapshotType = "TERMINAL"
)

func (t SnapshotType) valid() bool {
	switch t {
	case InitialSnapshot, UpdateSnapshot, TerminalSnapshot:
		return true
	default:
		return false
	}
}

// CommitMetadata describes the commit that produced a snapshot.
type CommitMetadata struct {
	ID             uuid.UUID
	Author         string
	CommitDate     time.Time
	Properties     map[string]string
	SequenceNumber SequenceNumberUint // assigned by the repository when persisted
}

// CdoSnapshot is the persisted state of one object at one point in time.
// Snapshots are produced and owned by a snapshot repository; consumers treat them as read-only values.
type CdoSnapshot struct {
	GlobalID          GlobalID
	Version           VersionUint
	Type              SnapshotType
	State             json.RawMessage // property name -> value, as a JSON object
	ChangedProperties []string
	Commit            CommitMetadata
}

// Validate ensures the snapshot has valid data for storage operations.
func (s CdoSnapshot) Validate() error {
	if s.GlobalID == nil {
		return ErrNilGlobalID
	}

	if s.Version == 0 {
		return ErrInvalidSnapshotVersion
	}

	if !s.Type.valid() {
		return ErrInvalidSnapshotType
	}

	if !jsoniter.ConfigFastest.Valid(s.State) || !isJSONObject(s.State) {
		return ErrInvalidSnapshotState
	}

	return nil
}

// PropertyValues decodes the snapshot state into a map of property values.
func (s CdoSnapshot) PropertyValues() (map[string]any, error) {
	values := make(map[string]any)

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(s.State, &values); err != nil {
		return nil, errors.Join(ErrDecodingSnapshotStateFailed, err)
	}

	return values, nil
}

// IsInitial is true for the first snapshot of an object.
func (s CdoSnapshot) IsInitial() bool {
	return s.Type == InitialSnapshot
}

// IsTerminal is true for the snapshot recording the removal of an object.
func (s CdoSnapshot) IsTerminal() bool {
	return s.Type == TerminalSnapshot
}

// BuildCdoSnapshot creates a new CdoSnapshot with validation.
func BuildCdoSnapshot(
	globalID GlobalID,
	version VersionUint,
	snapshotType SnapshotType,
	state json.RawMessage,
	changedProperties []string,
	commit CommitMetadata,
) (CdoSnapshot, error) {

	snapshot := CdoSnapshot{
		GlobalID:          globalID,
		Version:           version,
		Type:              snapshotType,
		State:             state,
		ChangedProperties: changedProperties,
		Commit:            commit,
	}

	if err := snapshot.Validate(); err != nil {
		return CdoSnapshot{}, err
	}

	return snapshot, nil
}

func isJSONObject(data json.RawMessage) bool {
	return jsoniter.ConfigFastest.Get(data).ValueType() == jsoniter.ObjectValue
}
