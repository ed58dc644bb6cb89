package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS artifacts (
  artifact_id   TEXT PRIMARY KEY,
  filename      TEXT NOT NULL,
  content_type  TEXT NOT NULL,
  byte_size     BIGINT NOT NULL,
  content       BYTEA NOT NULL,
  title         TEXT,
  description   TEXT,
  parse_status  TEXT NOT NULL DEFAULT 'unparsed',
  fail_reason   TEXT,
  fingerprint   TEXT NOT NULL,
  uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_accessed TIMESTAMPTZ,
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_artifacts_fingerprint ON artifacts (fingerprint)`,
	`CREATE TABLE IF NOT EXISTS parsed_contents (
  content_id   TEXT PRIMARY KEY,
  artifact_id  TEXT NOT NULL REFERENCES artifacts (artifact_id) ON DELETE CASCADE,
  content_type TEXT NOT NULL,
  text         TEXT NOT NULL,
  sections     JSONB NOT NULL,
  encoding     TEXT,
  byte_size    BIGINT NOT NULL,
  fingerprint  TEXT NOT NULL,
  parsed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_parsed_artifact ON parsed_contents (artifact_id)`,
	`CREATE INDEX IF NOT EXISTS idx_parsed_fingerprint ON parsed_contents (fingerprint)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
