package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS access_pins (
  id          UUID        PRIMARY KEY,
  pin_hash    CHAR(64)    NOT NULL UNIQUE,
  label       TEXT,
  api_key     TEXT,
  usage_count BIGINT      NOT NULL DEFAULT 0,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS analysis_logs (
  id           BIGSERIAL   PRIMARY KEY,
  content_hash CHAR(64)    NOT NULL,
  ai_score     INTEGER     NOT NULL,
  model_used   TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_logs_content_hash ON analysis_logs (content_hash)`,
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
