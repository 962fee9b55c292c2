package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	logMsgCreateTableFailed = "failed to create snapshot table"
	logMsgTableCreated      = "snapshot table created"
	logActionCreateTable    = "create table"
	logAttrTableName        = "table_name"
)

var ErrCreatingTableFailed = errors.New("creating the snapshot table failed")

// schemaTemplate is the DDL of the snapshot table, %[1]s is the table name.
// Text columns of GlobalID parts that do not apply to a kind hold the empty string.
const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    sequence_number BIGSERIAL PRIMARY KEY,
    global_id TEXT NOT NULL,
    id_kind TEXT NOT NULL,
    type_name TEXT NOT NULL,
    local_id TEXT NOT NULL DEFAULT '',
    owner_type_name TEXT NOT NULL DEFAULT '',
    owner_local_id TEXT NOT NULL DEFAULT '',
    fragment TEXT NOT NULL DEFAULT '',
    version BIGINT NOT NULL CHECK (version > 0),
    snapshot_type TEXT NOT NULL,
    state JSONB NOT NULL,
    changed_properties JSONB NOT NULL DEFAULT '[]',
    commit_id UUID NOT NULL,
    commit_author TEXT NOT NULL,
    commit_date TIMESTAMPTZ NOT NULL,
    commit_properties JSONB NOT NULL DEFAULT '{}',
    CONSTRAINT %[1]s_global_id_version_key UNIQUE (global_id, version)
);
CREATE INDEX IF NOT EXISTS %[1]s_type_name_idx ON %[1]s (type_name, sequence_number);
CREATE INDEX IF NOT EXISTS %[1]s_owner_fragment_idx ON %[1]s (owner_type_name, fragment, sequence_number);
CREATE INDEX IF NOT EXISTS %[1]s_commit_id_idx ON %[1]s (commit_id);
CREATE INDEX IF NOT EXISTS %[1]s_changed_properties_idx ON %[1]s USING GIN (changed_properties);`

// Schema returns the DDL of a snapshot table with the given name.
func Schema(tableName string) string {
	return fmt.Sprintf(schemaTemplate, tableName)
}

// CreateTable creates the snapshot table and its indexes if they do not exist.
func (s *SnapshotStore) CreateTable(ctx context.Context) error {
	for _, statement := range strings.SplitAfter(Schema(s.snapshotTableName), ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}

		start := time.Now()
		_, execErr := s.db.Exec(ctx, statement)
		s.logQueryWithDuration(statement, logActionCreateTable, time.Since(start))
		s.logQueryWithDurationContext(ctx, statement, logActionCreateTable, time.Since(start))

		if execErr != nil {
			s.logError(logMsgCreateTableFailed, execErr, logAttrTableName, s.snapshotTableName)
			s.logErrorContext(ctx, logMsgCreateTableFailed, execErr, logAttrTableName, s.snapshotTableName)

			return errors.Join(ErrCreatingTableFailed, execErr)
		}
	}

	s.logOperation(logMsgTableCreated, logAttrTableName, s.snapshotTableName)
	s.logOperationContext(ctx, logMsgTableCreated, logAttrTableName, s.snapshotTableName)

	return nil
}

// TableName returns the name of the snapshot table.
func (s *SnapshotStore) TableName() string {
	return s.snapshotTableName
}
