package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
)

func personTagsEntries() []diff.EntryChange {
	return []diff.EntryChange{
		diff.NewEntryAdded("a", "x"),
		diff.NewEntryRemoved("b", "y"),
		diff.NewEntryValueChange("c", float64(1), float64(2)),
	}
}

func Test_NewMapChange_FailsForEmptyEntries(t *testing.T) {
	id := auditstore.NewInstanceID("Person", "1")

	_, err := diff.NewMapChange(id, "tags", nil)
	assert.ErrorIs(t, err, diff.ErrEmptyEntryChanges)

	_, err = diff.NewMapChange(id, "tags", []diff.EntryChange{})
	assert.ErrorIs(t, err, diff.ErrEmptyEntryChanges)
}

func Test_NewMapChange_FailsForEntriesOfUnknownKind(t *testing.T) {
	id := auditstore.NewInstanceID("Person", "1")

	change, err := diff.NewMapChange(id, "tags", []diff.EntryChange{{}, diff.NewEntryAdded("a", 1)})

	assert.ErrorIs(t, err, diff.ErrInvalidEntryChange)
	assert.Empty(t, change.EntryChanges())
}

func Test_MapChange_KeepsEntriesInOrder_AndIsImmutable(t *testing.T) {
	entries := personTagsEntries()

	change, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", entries)
	require.NoError(t, err)

	assert.Equal(t, entries, change.EntryChanges())

	// neither the input nor the returned list reaches the record
	entries[0] = diff.NewEntryAdded("z", "z")
	returned := change.EntryChanges()
	returned[1] = diff.NewEntryAdded("z", "z")

	assert.Equal(t, "a", change.EntryChanges()[0].Key())
	assert.Equal(t, "b", change.EntryChanges()[1].Key())
}

func Test_MapChange_FilteredViewsPartitionTheEntries(t *testing.T) {
	change, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", personTagsEntries())
	require.NoError(t, err)

	added := change.EntryAddedChanges()
	removed := change.EntryRemovedChanges()
	valueChanged := change.EntryValueChanges()

	assert.Len(t, added, 1)
	assert.Len(t, removed, 1)
	assert.Len(t, valueChanged, 1)
	assert.Len(t, change.EntryChanges(), len(added)+len(removed)+len(valueChanged))

	assert.Equal(t, diff.EntryAdded, added[0].Kind())
	assert.Equal(t, diff.EntryRemoved, removed[0].Kind())
	assert.Equal(t, diff.EntryValueChanged, valueChanged[0].Kind())

	partAdded, partRemoved, partValueChanged := change.Partition()
	assert.Equal(t, added, partAdded)
	assert.Equal(t, removed, partRemoved)
	assert.Equal(t, valueChanged, partValueChanged)
}

func Test_MapChange_FilteredViewsKeepRelativeOrder(t *testing.T) {
	change, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", []diff.EntryChange{
		diff.NewEntryAdded("b", 1),
		diff.NewEntryRemoved("x", 1),
		diff.NewEntryAdded("a", 2),
	})
	require.NoError(t, err)

	added := change.EntryAddedChanges()
	require.Len(t, added, 2)
	assert.Equal(t, "b", added[0].Key())
	assert.Equal(t, "a", added[1].Key())
	assert.Empty(t, change.EntryValueChanges())
}

//nolint:funlen
func Test_MapChange_EqualityAndHash(t *testing.T) {
	base, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", personTagsEntries())
	require.NoError(t, err)

	same, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", personTagsEntries())
	require.NoError(t, err)

	assert.True(t, base.Equal(same))
	assert.Equal(t, base.Hash(), same.Hash())

	tests := []struct {
		name  string
		build func() (diff.MapChange, error)
	}{
		{
			name: "other affected id",
			build: func() (diff.MapChange, error) {
				return diff.NewMapChange(auditstore.NewInstanceID("Person", "2"), "tags", personTagsEntries())
			},
		},
		{
			name: "other property",
			build: func() (diff.MapChange, error) {
				return diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "labels", personTagsEntries())
			},
		},
		{
			name: "other entry order",
			build: func() (diff.MapChange, error) {
				entries := personTagsEntries()
				entries[0], entries[1] = entries[1], entries[0]
				return diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", entries)
			},
		},
		{
			name: "other entry value",
			build: func() (diff.MapChange, error) {
				entries := personTagsEntries()
				entries[2] = diff.NewEntryValueChange("c", float64(1), float64(3))
				return diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", entries)
			},
		},
		{
			name: "fewer entries",
			build: func() (diff.MapChange, error) {
				return diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", personTagsEntries()[:2])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			other, buildErr := tc.build()
			require.NoError(t, buildErr)

			assert.False(t, base.Equal(other))
			assert.False(t, other.Equal(base))
		})
	}
}

func Test_MapChange_String(t *testing.T) {
	change, err := diff.NewMapChange(auditstore.NewInstanceID("Person", "1"), "tags", personTagsEntries())
	require.NoError(t, err)

	assert.Equal(
		t,
		"MapChange{globalId: 'Person/1', property: 'tags', entryChanges: "+
			"EntryAdded{key: 'a'}, EntryRemoved{key: 'b'}, EntryValueChange{key: 'c', left: 1, right: 2}}",
		change.String(),
	)
}
