package config

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const postgresDriverName = "postgres"

var (
	ErrParsingDSNFailed        = errors.New("parsing the postgres DSN failed")
	ErrOpeningConnectionFailed = errors.New("opening the postgres connection failed")
	ErrPingFailed              = errors.New("pinging the postgres database failed")
)

// PGXPoolConfig creates a pgxpool.Config for dsn with the pool settings applied.
func PGXPoolConfig(dsn string, settings PoolSettings) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrParsingDSNFailed, err)
	}

	dbConfig.MaxConns = settings.MaxConns
	dbConfig.MinConns = settings.MinConns
	dbConfig.MaxConnLifetime = settings.MaxConnLifetime
	dbConfig.MaxConnIdleTime = settings.MaxConnIdleTime
	dbConfig.ConnConfig.ConnectTimeout = settings.ConnectTimeout

	return dbConfig, nil
}

// OpenPGXPool creates a pgx pool and checks that the database is reachable.
func OpenPGXPool(ctx context.Context, dsn string, settings PoolSettings) (*pgxpool.Pool, error) {
	dbConfig, err := PGXPoolConfig(dsn, settings)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, errors.Join(ErrOpeningConnectionFailed, err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, errors.Join(ErrPingFailed, pingErr)
	}

	return pool, nil
}

// OpenSQLDB creates a *sql.DB on the lib/pq driver and checks that the database is reachable.
func OpenSQLDB(ctx context.Context, dsn string, settings PoolSettings) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningConnectionFailed, err)
	}

	applySQLPoolSettings(db, settings)

	if pingErr := ping(ctx, db, settings); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

// OpenSQLX creates a *sqlx.DB on the lib/pq driver and checks that the database is reachable.
func OpenSQLX(ctx context.Context, dsn string, settings PoolSettings) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningConnectionFailed, err)
	}

	applySQLPoolSettings(db.DB, settings)

	if pingErr := ping(ctx, db.DB, settings); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

// applySQLPoolSettings maps MinConns to the idle connections database/sql keeps open.
func applySQLPoolSettings(db *sql.DB, settings PoolSettings) {
	db.SetMaxOpenConns(int(settings.MaxConns))
	db.SetMaxIdleConns(int(settings.MinConns))
	db.SetConnMaxLifetime(settings.MaxConnLifetime)
	db.SetConnMaxIdleTime(settings.MaxConnIdleTime)
}

func ping(ctx context.Context, db *sql.DB, settings PoolSettings) error {
	if settings.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.Join(ErrPingFailed, err)
	}

	return nil
}
