package pgcheckpoint

import (
	"context"
	"fmt"
	"strings"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    thread_id  TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// createUpdatedAtIndexSQL supports pruning old threads.
const createUpdatedAtIndexSQL = `CREATE INDEX IF NOT EXISTS idx_%s_updated_at
    ON %s (updated_at)`

// EnsureSchema creates the table and its index when they do not exist.
// Deployments with migration tooling can run the same DDL there instead.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return fmt.Errorf("pgcheckpoint: create table: %w", err)
	}

	indexSQL := fmt.Sprintf(createUpdatedAtIndexSQL, indexSuffix(s.tableName), s.tableName)
	if _, err := s.db.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("pgcheckpoint: create updated_at index: %w", err)
	}
	return nil
}

// indexSuffix strips the identifier quotes added by WithTableName.
func indexSuffix(tableName string) string {
	return strings.ReplaceAll(tableName, `"`, "")
}
