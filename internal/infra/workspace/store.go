package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
)

// Store is the CLI workspace: submissions, the assignment context, the
// current session and the selected model, kept in one sqlite file.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	fallbackModel string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		student_label TEXT NOT NULL,
		content       TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		ai_score      INTEGER,
		reasoning     TEXT,
		is_duplicate  INTEGER,
		model_used    TEXT,
		result_at     INTEGER,
		error_message TEXT NOT NULL DEFAULT '',
		last_updated  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Open creates the workspace file and its parent directory when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure workspace dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	return &Store{db: db, path: path, lock: flock.New(path + ".lock")}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the sqlite file backing the workspace.
func (s *Store) Path() string { return s.path }

// TryLock takes the workspace batch lock without waiting. ok is false when
// another process holds it.
func (s *Store) TryLock() (unlock func(), ok bool, err error) {
	ok, err = s.lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { _ = s.lock.Unlock() }, true, nil
}

const submissionColumns = `id, student_label, content, status, ai_score, reasoning,
	is_duplicate, model_used, result_at, error_message, last_updated`

func (s *Store) Get(ctx context.Context, id string) (*submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", submission.ErrNotFound, id)
	}
	return sub, err
}

// Save inserts or updates. A new submission sorts before every existing one.
func (s *Store) Save(ctx context.Context, sub *submission.Submission) error {
	var (
		score     sql.NullInt64
		reasoning sql.NullString
		dup       sql.NullBool
		model     sql.NullString
		resultAt  sql.NullInt64
	)
	if r := sub.Result; r != nil {
		score = sql.NullInt64{Int64: int64(r.AIScore), Valid: true}
		reasoning = sql.NullString{String: r.Reasoning, Valid: true}
		dup = sql.NullBool{Bool: r.IsDuplicate, Valid: true}
		model = sql.NullString{String: r.ModelUsed, Valid: true}
		resultAt = sql.NullInt64{Int64: r.Timestamp.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			student_label = excluded.student_label,
			content       = excluded.content,
			status        = excluded.status,
			ai_score      = excluded.ai_score,
			reasoning     = excluded.reasoning,
			is_duplicate  = excluded.is_duplicate,
			model_used    = excluded.model_used,
			result_at     = excluded.result_at,
			error_message = excluded.error_message,
			last_updated  = excluded.last_updated`,
		sub.ID, sub.StudentLabel, sub.Content, string(sub.Status),
		score, reasoning, dup, model, resultAt,
		sub.ErrorMessage, sub.LastUpdated.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save submission %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*submission.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete submission %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", submission.ErrNotFound, id)
	}
	return nil
}

// InterruptedMessage is recorded on submissions that were still analyzing
// when their process died.
const InterruptedMessage = "Interrupted before the analysis finished"

// ResetStuckAnalyzing moves every analyzing submission to error. Call it only
// while holding the workspace lock, so a run in another process is not
// mistaken for a dead one.
func (s *Store) ResetStuckAnalyzing(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET status = ?, error_message = ?, last_updated = ?
		WHERE status = ?`,
		string(submission.StatusError), InterruptedMessage, now.UnixNano(),
		string(submission.StatusAnalyzing),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck submissions: %w", err)
	}
	return res.RowsAffected()
}

// Clear drops every submission and the assignment context. The session and
// model choice survive.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("clear submissions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, keyContext); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (*submission.Submission, error) {
	var (
		sub       submission.Submission
		status    string
		score     sql.NullInt64
		reasoning sql.NullString
		dup       sql.NullBool
		model     sql.NullString
		resultAt  sql.NullInt64
		updated   int64
	)
	if err := sc.Scan(&sub.ID, &sub.StudentLabel, &sub.Content, &status, &score, &reasoning,
		&dup, &model, &resultAt, &sub.ErrorMessage, &updated); err != nil {
		return nil, err
	}
	sub.Status = submission.Status(status)
	sub.LastUpdated = fromNanos(updated)
	if score.Valid {
		sub.Result = &submission.Result{
			AIScore:     int(score.Int64),
			Reasoning:   reasoning.String,
			IsDuplicate: dup.Bool,
			ModelUsed:   model.String,
			Timestamp:   fromNanos(resultAt.Int64),
		}
	}
	return &sub, nil
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
