package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
	"github.com/AntonStoeckl/auditstore-go/auditstore/postgresengine"
	"github.com/AntonStoeckl/auditstore-go/auditstore/rediscache"
	"github.com/AntonStoeckl/auditstore-go/internal/config"
)

// backend is the storage the commands work on.
type backend struct {
	repository history.SnapshotRepository
	migrate    func(ctx context.Context) error
	close      func()
}

type backendOpener func(
	ctx context.Context,
	cfg config.Config,
	logger *zapLogger,
	metrics auditstore.MetricsCollector,
) (*backend, error)

// openPostgresBackend connects with the configured driver and wraps the store in the
// redis snapshot cache when a redis address is configured.
func openPostgresBackend(
	ctx context.Context,
	cfg config.Config,
	logger *zapLogger,
	metrics auditstore.MetricsCollector,
) (*backend, error) {

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, storeClosers, err := openSnapshotStore(
		ctx,
		cfg.Postgres,
		postgresengine.WithTableName(cfg.Postgres.Table),
		postgresengine.WithContextualLogger(logger),
		postgresengine.WithMetrics(metrics),
	)
	closers = append(closers, storeClosers...)

	if err != nil {
		closeAll()
		return nil, err
	}

	result := &backend{repository: store, migrate: store.CreateTable, close: closeAll}

	if cfg.Redis.Addr == "" {
		return result, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	closers = append(closers, func() { _ = client.Close() })

	cache, err := rediscache.NewSnapshotCache(
		store,
		client,
		rediscache.WithKeyPrefix(cfg.Redis.KeyPrefix),
		rediscache.WithTTL(cfg.Redis.TTL),
		rediscache.WithLogger(logger),
		rediscache.WithMetrics(metrics),
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	result.repository = cache

	return result, nil
}

// openSnapshotStore returns the closers of all opened connections, also on failure.
func openSnapshotStore(
	ctx context.Context,
	cfg config.PostgresConfig,
	options ...postgresengine.Option,
) (*postgresengine.SnapshotStore, []func(), error) {

	var closers []func()

	switch cfg.Driver {
	case config.DriverPGX:
		primary, err := config.OpenPGXPool(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, primary.Close)

		if cfg.ReplicaDSN == "" {
			store, err := postgresengine.NewSnapshotStoreFromPGXPool(primary, options...)
			return store, closers, err
		}

		replica, err := config.OpenPGXPool(ctx, cfg.ReplicaDSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, replica.Close)

		store, err := postgresengine.NewSnapshotStoreFromPGXPoolAndReplica(primary, replica, options...)

		return store, closers, err

	case config.DriverSQLDB:
		primary, err := config.OpenSQLDB(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = primary.Close() })

		if cfg.ReplicaDSN == "" {
			store, err := postgresengine.NewSnapshotStoreFromSQLDB(primary, options...)
			return store, closers, err
		}

		replica, err := config.OpenSQLDB(ctx, cfg.ReplicaDSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = replica.Close() })

		store, err := postgresengine.NewSnapshotStoreFromSQLDBAndReplica(primary, replica, options...)

		return store, closers, err

	case config.DriverSQLX:
		primary, err := config.OpenSQLX(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = primary.Close() })

		if cfg.ReplicaDSN == "" {
			store, err := postgresengine.NewSnapshotStoreFromSQLX(primary, options...)
			return store, closers, err
		}

		replica, err := config.OpenSQLX(ctx, cfg.ReplicaDSN, cfg.Pool)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = replica.Close() })

		store, err := postgresengine.NewSnapshotStoreFromSQLXAndReplica(primary, replica, options...)

		return store, closers, err

	default:
		return nil, closers, errors.Join(config.ErrInvalidConfig, errors.New("unknown driver "+cfg.Driver))
	}
}
