// Package adapters provides the database adapters of the Postgres snapshot store.
//
// pgx.Pool, sql.DB, and sqlx.DB are wrapped behind the common DBAdapter interface.
// Each adapter may carry a replica, which serves reads only when the context asks for
// eventual consistency; writes always go to the primary.
package adapters
