// Package rediscache provides a Redis cache in front of a snapshot repository.
//
// SnapshotCache implements history.SnapshotRepository itself, so it can be handed to
// history.NewExtendedRepository or commit.NewCommitter in place of the wrapped engine.
//
// Usage example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store, _ := postgresengine.NewSnapshotStoreFromPGXPool(pool)
//	cached, _ := rediscache.NewSnapshotCache(store, client, rediscache.WithTTL(time.Minute))
//
//	// served from Redis after the first read
//	latest, _ := cached.GetLatest(auditstore.WithEventualConsistency(ctx), id)
package rediscache
