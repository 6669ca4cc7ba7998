package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

type AnalysisLogRepository struct{ db *sql.DB }

func NewAnalysisLogRepository(db *sql.DB) *AnalysisLogRepository {
	return &AnalysisLogRepository{db: db}
}

func (r *AnalysisLogRepository) HasFingerprint(ctx context.Context, fp fingerprint.Digest) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM analysis_logs WHERE content_hash = $1);`, fp.String(),
	).Scan(&found)
	return found, err
}

// Append always inserts; duplicates keep their own rows.
func (r *AnalysisLogRepository) Append(ctx context.Context, e *analysis.LogEntry) error {
	const q = `
INSERT INTO analysis_logs (content_hash, ai_score, model_used, created_at)
VALUES ($1, $2, $3, $4);`
	if !e.Fingerprint.Valid() {
		return fmt.Errorf("append %q: %w", e.Fingerprint, fingerprint.ErrMalformed)
	}
	model := e.Model
	if strings.TrimSpace(model) == "" {
		model = "-"
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, e.Fingerprint.String(), e.AIScore, model, createdAt)
	return err
}
