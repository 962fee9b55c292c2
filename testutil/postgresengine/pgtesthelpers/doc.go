// Package pgtesthelpers provides test utilities for running the postgres engine against a real
// PostgreSQL database with every supported connection type (pgx.Pool, sql.DB, sqlx.DB).
//
// Each store gets its own freshly created snapshot table, which is dropped when the test ends.
//
// Environment Variables:
//
//	AUDITSTORE_TEST_POSTGRES_DSN: PostgreSQL DSN, tests using OpenStores are skipped if it is unset
package pgtesthelpers
