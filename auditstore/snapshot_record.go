package auditstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidSnapshotRecord = errors.New("snapshot record is not valid")

// SnapshotRecord is the flat, scalar representation of a CdoSnapshot used by storage engines and caches.
//
// It is built on scalars to be completely agnostic of how a concrete engine stores the data.
//
// While its properties are exported, it should only be constructed with SnapshotToRecord
// and converted back with ToSnapshot, which validates the result.
type SnapshotRecord struct {
	IDKind            string             `json:"idKind"`
	GlobalID          string             `json:"globalId"`
	TypeName          string             `json:"typeName"`
	LocalID           string             `json:"localId,omitempty"`
	OwnerTypeName     string             `json:"ownerTypeName,omitempty"`
	OwnerLocalID      string             `json:"ownerLocalId,omitempty"`
	Fragment          string             `json:"fragment,omitempty"`
	Version           VersionUint        `json:"version"`
	SnapshotType      string             `json:"snapshotType"`
	State             json.RawMessage    `json:"state"`
	ChangedProperties []string           `json:"changedProperties"`
	CommitID          string             `json:"commitId"`
	CommitAuthor      string             `json:"commitAuthor"`
	CommitDate        time.Time          `json:"commitDate"`
	CommitProperties  map[string]string  `json:"commitProperties,omitempty"`
	SequenceNumber    SequenceNumberUint `json:"sequenceNumber"`
}

// SnapshotToRecord flattens a CdoSnapshot into a SnapshotRecord.
func SnapshotToRecord(snapshot CdoSnapshot) SnapshotRecord {
	record := SnapshotRecord{
		IDKind:            string(snapshot.GlobalID.Kind()),
		GlobalID:          snapshot.GlobalID.Value(),
		TypeName:          snapshot.GlobalID.TypeName(),
		Version:           snapshot.Version,
		SnapshotType:      string(snapshot.Type),
		State:             snapshot.State,
		ChangedProperties: snapshot.ChangedProperties,
		CommitID:          snapshot.Commit.ID.String(),
		CommitAuthor:      snapshot.Commit.Author,
		CommitDate:        snapshot.Commit.CommitDate,
		CommitProperties:  snapshot.Commit.Properties,
		SequenceNumber:    snapshot.Commit.SequenceNumber,
	}

	switch id := snapshot.GlobalID.(type) {
	case InstanceID:
		record.LocalID = id.LocalID()
	case ValueObjectID:
		record.OwnerTypeName = id.Owner().TypeName()
		record.OwnerLocalID = id.Owner().LocalID()
		record.Fragment = id.Fragment()
	case UnboundedValueObjectID:
		// the type name is all there is
	}

	if record.ChangedProperties == nil {
		record.ChangedProperties = []string{}
	}

	return record
}

// ToSnapshot rebuilds and validates the CdoSnapshot.
func (r SnapshotRecord) ToSnapshot() (CdoSnapshot, error) {
	globalID, idErr := r.globalID()
	if idErr != nil {
		return CdoSnapshot{}, idErr
	}

	commitID, parseErr := uuid.Parse(r.CommitID)
	if parseErr != nil {
		return CdoSnapshot{}, errors.Join(ErrInvalidSnapshotRecord, parseErr)
	}

	return BuildCdoSnapshot(
		globalID,
		r.Version,
		SnapshotType(r.SnapshotType),
		r.State,
		r.ChangedProperties,
		CommitMetadata{
			ID:             commitID,
			Author:         r.CommitAuthor,
			CommitDate:     r.CommitDate,
			Properties:     r.CommitProperties,
			SequenceNumber: r.SequenceNumber,
		},
	)
}

func (r SnapshotRecord) globalID() (GlobalID, error) {
	switch GlobalIDKind(r.IDKind) {
	case InstanceIDKind:
		return NewInstanceID(r.TypeName, r.LocalID), nil

	case ValueObjectIDKind:
		return NewValueObjectID(r.TypeName, NewInstanceID(r.OwnerTypeName, r.OwnerLocalID), r.Fragment), nil

	case UnboundedValueObjectIDKind:
		return NewUnboundedValueObjectID(r.TypeName), nil

	default:
		return nil, errors.Join(ErrInvalidSnapshotRecord, errors.New("unknown global id kind: "+r.IDKind))
	}
}

// MarshalSnapshot encodes a snapshot as JSON, e.g. for caching.
func MarshalSnapshot(snapshot CdoSnapshot) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(SnapshotToRecord(snapshot))
}

// UnmarshalSnapshot decodes a snapshot encoded with MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (CdoSnapshot, error) {
	var record SnapshotRecord

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &record); err != nil {
		return CdoSnapshot{}, errors.Join(ErrInvalidSnapshotRecord, err)
	}

	return record.ToSnapshot()
}
