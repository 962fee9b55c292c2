// Package postgresengine provides a PostgreSQL snapshot repository.
//
// SnapshotStore implements history.SnapshotRepository on a single table, see Schema for its DDL.
// It supports three database adapters (pgx, sql.DB, sqlx) with optional replicas.
//
// Key features:
//   - Atomic multi-snapshot persist with conflict detection on (global_id, version)
//   - Newest-first reads with QueryParams filters, skip, and limit applied in SQL
//   - Replica reads for contexts marked with auditstore.WithEventualConsistency
//   - Optional logging, contextual logging, metrics, and tracing
//
// Usage examples:
//
//	pool, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewSnapshotStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableName("audit_snapshots"),
//		postgresengine.WithLogger(logger),
//	)
//
//	// reads from the replica, writes to the primary
//	store, _ = postgresengine.NewSnapshotStoreFromPGXPoolAndReplica(pool, replicaPool)
//	snapshots, _ := store.GetSnapshots(auditstore.WithEventualConsistency(ctx), auditstore.DefaultQueryParams())
package postgresengine
