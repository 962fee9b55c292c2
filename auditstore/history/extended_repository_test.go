package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/commit"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
	"github.com/AntonStoeckl/auditstore-go/auditstore/memoryengine"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
	"github.com/AntonStoeckl/auditstore-go/testutil/fixtures"
	"github.com/AntonStoeckl/auditstore-go/testutil/observability/testdoubles"
)

var samID = auditstore.NewInstanceID(fixtures.PersonTypeName, "sam")

type historyFixture struct {
	store     *memoryengine.SnapshotStore
	mapper    *metamodel.TypeMapper
	committer *commit.Committer
}

func newHistoryFixture(t *testing.T) historyFixture {
	t.Helper()

	mapper, err := fixtures.NewTypeMapper()
	require.NoError(t, err)

	store, err := memoryengine.NewSnapshotStore()
	require.NoError(t, err)

	committer, err := commit.NewCommitter(mapper, store)
	require.NoError(t, err)

	return historyFixture{store: store, mapper: mapper, committer: committer}
}

// commitSamThreeTimes produces v1 (initial), v2 (name changed) and v3 (tags added).
func (f historyFixture) commitSamThreeTimes(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sam := fixtures.Sam()
	_, err := f.committer.Commit(ctx, "bilbo", sam, nil)
	require.NoError(t, err)

	sam.Name = "Samwise"
	_, err = f.committer.Commit(ctx, "frodo", sam, nil)
	require.NoError(t, err)

	sam.Tags = map[string]string{"race": "hobbit"}
	_, err = f.committer.Commit(ctx, "gandalf", sam, nil)
	require.NoError(t, err)
}

func (f historyFixture) repository(t *testing.T, options ...history.Option) *history.ExtendedRepository {
	t.Helper()

	repo, err := history.NewExtendedRepository(f.store, options...)
	require.NoError(t, err)

	return repo
}

func describe(changes diff.Changes) []string {
	described := make([]string, 0, len(changes))

	for _, change := range changes {
		id := change.AffectedGlobalID().Value()

		switch c := change.(type) {
		case diff.ValueChange:
			described = append(described, fmt.Sprintf("ValueChange %s.%s", id, c.PropertyName()))
		case diff.MapChange:
			described = append(described, fmt.Sprintf("MapChange %s.%s", id, c.PropertyName()))
		case diff.NewObject:
			described = append(described, "NewObject "+id)
		case diff.ObjectRemoved:
			described = append(described, "ObjectRemoved "+id)
		}
	}

	return described
}

func Test_NewExtendedRepository_RejectsNilReader(t *testing.T) {
	_, err := history.NewExtendedRepository(nil)
	assert.ErrorIs(t, err, history.ErrNilSnapshotReader)
}

//nolint:funlen
func Test_ExtendedRepository_ChangeHistory(t *testing.T) {
	f := newHistoryFixture(t)
	f.commitSamThreeTimes(t)
	ctx := context.Background()
	params := auditstore.DefaultQueryParams()

	t.Run("changes come newest first without new object changes", func(t *testing.T) {
		changes, err := f.repository(t).GetChangeHistory(ctx, samID, params)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"MapChange Person/sam.tags",
			"ValueChange Person/sam.name",
		}, describe(changes))

		commitMetadata, bound := changes[0].Commit()
		require.True(t, bound)
		assert.Equal(t, "gandalf", commitMetadata.Author)
	})

	t.Run("new object changes are included when configured", func(t *testing.T) {
		changes, err := f.repository(t, history.WithNewObjectChanges(true)).GetChangeHistory(ctx, samID, params)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"MapChange Person/sam.tags",
			"ValueChange Person/sam.name",
			"NewObject Person/sam",
			"ValueChange Person/sam.age",
			"ValueChange Person/sam.login",
			"ValueChange Person/sam.name",
		}, describe(changes))
	})

	t.Run("predecessors outside of the page are loaded", func(t *testing.T) {
		changes, err := f.repository(t).GetChangeHistory(ctx, samID, params.WithLimit(1))
		require.NoError(t, err)

		require.Len(t, changes, 1)
		mapChange, ok := changes[0].(diff.MapChange)
		require.True(t, ok)
		assert.Equal(t, []diff.EntryChange{diff.NewEntryAdded("race", "hobbit")}, mapChange.EntryChanges())
	})

	t.Run("GetChanges takes the new object flag from the caller", func(t *testing.T) {
		withNewObjects, err := f.repository(t).GetChanges(ctx, true, params)
		require.NoError(t, err)
		assert.Contains(t, describe(withNewObjects), "NewObject Person/sam")

		withoutNewObjects, err := f.repository(t, history.WithNewObjectChanges(true)).GetChanges(ctx, false, params)
		require.NoError(t, err)
		assert.NotContains(t, describe(withoutNewObjects), "NewObject Person/sam")
	})

	t.Run("author filter applies to the changed snapshots", func(t *testing.T) {
		changes, err := f.repository(t).GetChangeHistory(ctx, samID, params.WithAuthor("frodo"))
		require.NoError(t, err)
		assert.Equal(t, []string{"ValueChange Person/sam.name"}, describe(changes))
	})
}

func Test_ExtendedRepository_TypeAndValueObjectHistories(t *testing.T) {
	f := newHistoryFixture(t)
	ctx := context.Background()
	params := auditstore.DefaultQueryParams()

	frodo := fixtures.Frodo()
	_, err := f.committer.Commit(ctx, "bilbo", frodo, nil)
	require.NoError(t, err)

	frodo.Address.City = "Crickhollow"
	frodo.Addresses[0].City = "Lothlorien"
	_, err = f.committer.Commit(ctx, "bilbo", frodo, nil)
	require.NoError(t, err)

	personType, err := f.mapper.ResolveInstance(fixtures.Person{})
	require.NoError(t, err)
	person, isEntity := metamodel.AsEntity(personType)
	require.True(t, isEntity)

	addressType, err := f.mapper.ResolveInstance(fixtures.Address{})
	require.NoError(t, err)

	repo := f.repository(t)

	voChanges, err := repo.GetValueObjectChangeHistory(ctx, person, "address", params)
	require.NoError(t, err)
	assert.Equal(t, []string{"ValueChange Person/frodo#address.city"}, describe(voChanges))

	typeChanges, err := repo.GetChangeHistoryForTypes(ctx, []metamodel.ManagedType{addressType}, params)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"ValueChange Person/frodo#address.city",
		"ValueChange Person/frodo#addresses/0.city",
	}, describe(typeChanges))

	typeSnapshots, err := repo.GetStateHistoryForTypes(ctx, []metamodel.ManagedType{addressType}, params)
	require.NoError(t, err)
	assert.Len(t, typeSnapshots, 5)

	voSnapshots, err := repo.GetValueObjectStateHistory(ctx, person, "addresses/0", params)
	require.NoError(t, err)
	assert.Len(t, voSnapshots, 2)
}

func Test_ExtendedRepository_ShallowDeleteYieldsObjectRemoved(t *testing.T) {
	f := newHistoryFixture(t)
	ctx := context.Background()

	_, err := f.committer.Commit(ctx, "bilbo", fixtures.Sam(), nil)
	require.NoError(t, err)
	_, err = f.committer.CommitShallowDelete(ctx, "bilbo", fixtures.Sam(), nil)
	require.NoError(t, err)

	changes, err := f.repository(t).GetChangeHistory(ctx, samID, auditstore.DefaultQueryParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"ObjectRemoved Person/sam"}, describe(changes))
}

func Test_ExtendedRepository_SkipsSnapshotsWithMissingPredecessor(t *testing.T) {
	f := newHistoryFixture(t)
	logHandler := testdoubles.NewLogHandlerSpy(false)
	ctx := context.Background()

	orphan, err := auditstore.BuildCdoSnapshot(
		samID,
		2,
		auditstore.UpdateSnapshot,
		json.RawMessage(`{"name":"Samwise"}`),
		[]string{"name"},
		auditstore.CommitMetadata{ID: uuid.New(), Author: "bilbo"},
	)
	require.NoError(t, err)
	require.NoError(t, f.store.Persist(ctx, orphan))

	repo := f.repository(t, history.WithLogger(slog.New(logHandler)))

	changes, err := repo.GetChangeHistory(ctx, samID, auditstore.DefaultQueryParams())
	require.NoError(t, err)
	assert.Empty(t, changes)

	assert.True(t, logHandler.
		HasWarnLogWithMessage("auditstore: predecessor snapshot missing, skipping its changes").
		WithAttr("global_id", "Person/sam").
		Assert())
}
