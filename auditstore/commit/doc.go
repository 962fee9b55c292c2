// Package commit turns Entities into snapshots.
//
// A Committer walks an Entity with the metamodel, collects the state of the Entity and of every value object
// reachable from it, compares each state with the latest snapshot of the same GlobalID, and persists the
// changed ones as one batch.
//
// Usage:
//
//	committer, err := commit.NewCommitter(typeMapper, snapshotStore, commit.WithLogger(logger))
//	result, err := committer.Commit(ctx, "bilbo", frodo, map[string]string{"reason": "import"})
//	result, err = committer.CommitShallowDelete(ctx, "bilbo", frodo, nil)
//
// Concurrent commits of the same Entity race on the snapshot versions; the loser gets
// auditstore.ErrConcurrencyConflict from the repository and may retry.
package commit
