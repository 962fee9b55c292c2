package pgtesthelpers

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore/postgresengine"
	"github.com/AntonStoeckl/auditstore-go/internal/config"
	"github.com/AntonStoeckl/auditstore-go/testutil/fixtures"
)

const EnvTestDSN = "AUDITSTORE_TEST_POSTGRES_DSN"

// NamedStore is a SnapshotStore on one connection type.
type NamedStore struct {
	Name  string
	Store *postgresengine.SnapshotStore
}

func testPoolSettings() config.PoolSettings {
	return config.PoolSettings{
		MaxConns:        4,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// OpenStores opens one store per connection type, each on its own new snapshot table.
// It skips the test if no test database is configured.
func OpenStores(t testing.TB, options ...postgresengine.Option) []NamedStore {
	t.Helper()

	dsn := os.Getenv(EnvTestDSN)
	if dsn == "" {
		t.Skip(EnvTestDSN + " is not set")
	}

	ctx := context.Background()
	settings := testPoolSettings()

	pool, err := config.OpenPGXPool(ctx, dsn, settings)
	require.NoError(t, err, "error connecting with pgx in test setup")
	t.Cleanup(pool.Close)

	sqlDB, err := config.OpenSQLDB(ctx, dsn, settings)
	require.NoError(t, err, "error connecting with database/sql in test setup")
	t.Cleanup(func() { _ = sqlDB.Close() })

	sqlxDB, err := config.OpenSQLX(ctx, dsn, settings)
	require.NoError(t, err, "error connecting with sqlx in test setup")
	t.Cleanup(func() { _ = sqlxDB.Close() })

	pgxStore, err := postgresengine.NewSnapshotStoreFromPGXPool(pool, withUniqueTable(t, options)...)
	require.NoError(t, err)

	sqlDBStore, err := postgresengine.NewSnapshotStoreFromSQLDB(sqlDB, withUniqueTable(t, options)...)
	require.NoError(t, err)

	sqlxStore, err := postgresengine.NewSnapshotStoreFromSQLX(sqlxDB, withUniqueTable(t, options)...)
	require.NoError(t, err)

	stores := []NamedStore{
		{Name: "pgx.pool", Store: pgxStore},
		{Name: "sql.db", Store: sqlDBStore},
		{Name: "sqlx.db", Store: sqlxStore},
	}

	for _, named := range stores {
		require.NoError(t, named.Store.CreateTable(ctx), "error creating the snapshot table in test setup")

		tableName := named.Store.TableName()
		t.Cleanup(func() {
			_, _ = pool.Exec(context.Background(), `DROP TABLE IF EXISTS "`+tableName+`"`)
		})
	}

	return stores
}

func withUniqueTable(t testing.TB, options []postgresengine.Option) []postgresengine.Option {
	t.Helper()

	return append([]postgresengine.Option{postgresengine.WithTableName(GivenUniqueTableName(t))}, options...)
}

// GivenUniqueTableName returns a valid, unused snapshot table name.
func GivenUniqueTableName(t testing.TB) string {
	t.Helper()

	return "audit_snapshots_" + strings.ReplaceAll(GivenUniqueID(t), "-", "")
}

// GivenUniqueID generates a unique, time ordered id for testing.
func GivenUniqueID(t testing.TB) string {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id.String()
}

// GivenUniquePerson builds a Person whose login no other test uses.
func GivenUniquePerson(t testing.TB) fixtures.Person {
	t.Helper()

	person := fixtures.Frodo()
	person.Login = "frodo-" + GivenUniqueID(t)

	return person
}
