package diff_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
)

func Test_CalculateEntryChanges(t *testing.T) {
	left := map[string]any{"a": 1, "b": 2, "c": 3}
	right := map[string]any{"b": 2, "c": 4, "d": 5}

	entries := diff.CalculateEntryChanges(left, right)

	assert.Equal(t, []diff.EntryChange{
		diff.NewEntryRemoved("a", 1),
		diff.NewEntryValueChange("c", 3, 4),
		diff.NewEntryAdded("d", 5),
	}, entries)

	assert.Empty(t, diff.CalculateEntryChanges(left, left))
	assert.Len(t, diff.CalculateEntryChanges(nil, right), 3)
}

func buildSnapshot(
	t *testing.T,
	version auditstore.VersionUint,
	snapshotType auditstore.SnapshotType,
	state string,
) auditstore.CdoSnapshot {
	t.Helper()

	snapshot, err := auditstore.BuildCdoSnapshot(
		auditstore.NewInstanceID("Person", "1"),
		version,
		snapshotType,
		json.RawMessage(state),
		nil,
		auditstore.CommitMetadata{ID: uuid.New(), Author: "frodo", CommitDate: time.Now()},
	)
	require.NoError(t, err)

	return snapshot
}

func Test_DiffSnapshots_Update(t *testing.T) {
	previous := buildSnapshot(t, 1, auditstore.InitialSnapshot, `{"name":"Frodo","tags":{"a":"x","b":"y"}}`)
	current := buildSnapshot(t, 2, auditstore.UpdateSnapshot, `{"name":"Sam","tags":{"a":"x","c":"z"}}`)

	changes, err := diff.DiffSnapshots(&previous, current, false)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	valueChange, ok := changes[0].(diff.ValueChange)
	require.True(t, ok)
	assert.Equal(t, "name", valueChange.PropertyName())
	assert.Equal(t, "Frodo", valueChange.Left())
	assert.Equal(t, "Sam", valueChange.Right())

	mapChange, ok := changes[1].(diff.MapChange)
	require.True(t, ok)
	assert.Equal(t, "tags", mapChange.PropertyName())
	assert.Equal(t, []diff.EntryChange{
		diff.NewEntryRemoved("b", "y"),
		diff.NewEntryAdded("c", "z"),
	}, mapChange.EntryChanges())

	commit, bound := changes[1].Commit()
	assert.True(t, bound)
	assert.Equal(t, current.Commit.ID, commit.ID)
}

func Test_DiffSnapshots_Initial(t *testing.T) {
	current := buildSnapshot(t, 1, auditstore.InitialSnapshot, `{"name":"Frodo"}`)

	changes, err := diff.DiffSnapshots(nil, current, false)
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = diff.DiffSnapshots(nil, current, true)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.IsType(t, diff.NewObject{}, changes[0])
	assert.Equal(t, "ValueChange{globalId: 'Person/1', property: 'name', left: null, right: 'Frodo'}", changes[1].String())
}

func Test_DiffSnapshots_Terminal(t *testing.T) {
	previous := buildSnapshot(t, 1, auditstore.InitialSnapshot, `{"name":"Frodo"}`)
	current := buildSnapshot(t, 2, auditstore.TerminalSnapshot, `{}`)

	changes, err := diff.DiffSnapshots(&previous, current, false)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.IsType(t, diff.ObjectRemoved{}, changes[0])
	assert.Equal(t, "Person/1", changes[0].AffectedGlobalID().Value())
}

func Test_DiffSnapshots_EmptyContainerAndNull_YieldValueChange(t *testing.T) {
	testCases := []struct {
		name     string
		previous string
		current  string
	}{
		{name: "empty map to null", previous: `{"tags":{}}`, current: `{"tags":null}`},
		{name: "null to empty map", previous: `{"tags":null}`, current: `{"tags":{}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			previous := buildSnapshot(t, 1, auditstore.InitialSnapshot, tc.previous)
			current := buildSnapshot(t, 2, auditstore.UpdateSnapshot, tc.current)

			changes, err := diff.DiffSnapshots(&previous, current, false)
			require.NoError(t, err)
			require.Len(t, changes, 1)

			valueChange, ok := changes[0].(diff.ValueChange)
			require.True(t, ok)
			assert.Equal(t, "tags", valueChange.PropertyName())
			assert.NotEqual(t, valueChange.Left(), valueChange.Right())
		})
	}
}
