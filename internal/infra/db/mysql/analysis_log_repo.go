package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

// AnalysisLogRepository is the append-only analysis_logs table.
type AnalysisLogRepository struct {
	db *sql.DB
}

func NewAnalysisLogRepository(db *sql.DB) *AnalysisLogRepository {
	return &AnalysisLogRepository{db: db}
}

func (r *AnalysisLogRepository) HasFingerprint(ctx context.Context, fp fingerprint.Digest) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM analysis_logs WHERE content_hash=?);`
	var found bool
	if err := r.db.QueryRowContext(ctx, q, fp.String()).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// Append always inserts; a repeated fingerprint gets its own row.
func (r *AnalysisLogRepository) Append(ctx context.Context, e *analysis.LogEntry) error {
	const q = `
INSERT INTO analysis_logs (content_hash, ai_score, model_used, created_at)
VALUES (?,?,?,?);
`
	if !e.Fingerprint.Valid() {
		return fmt.Errorf("append %q: %w", e.Fingerprint, fingerprint.ErrMalformed)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, e.Fingerprint.String(), e.AIScore, stringOrDash(e.Model), createdAt)
	return err
}
