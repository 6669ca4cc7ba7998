package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; the driver runs without multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS access_pins (
  id          CHAR(36)     NOT NULL PRIMARY KEY,
  pin_hash    CHAR(64)     NOT NULL,
  label       VARCHAR(255) NULL,
  api_key     TEXT         NULL,
  usage_count BIGINT       NOT NULL DEFAULT 0,
  created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_access_pins_pin_hash (pin_hash)
)`,
	`CREATE TABLE IF NOT EXISTS analysis_logs (
  id           BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  content_hash CHAR(64)     NOT NULL,
  ai_score     INT          NOT NULL,
  model_used   VARCHAR(128) NOT NULL,
  created_at   DATETIME(3)  NOT NULL,
  KEY idx_analysis_logs_content_hash (content_hash)
)`,
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
