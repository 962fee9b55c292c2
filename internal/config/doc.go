// Package config loads the settings of the auditquery command and opens the
// PostgreSQL connections the postgres engine supports (pgx.Pool, sql.DB, sqlx.DB).
//
// Settings come from defaults, an optional YAML file and AUDITSTORE_* environment
// variables, in increasing priority. Command line flags bound to the same keys win over all of them.
package config
