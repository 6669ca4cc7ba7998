package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
)

// DefaultModel is used until the operator picks one.
const DefaultModel = "gemini-flash-latest"

const (
	keyContext          = "context"
	keyModel            = "model"
	keySessionToken     = "session.token"
	keySessionLabel     = "session.label"
	keySessionExpiresAt = "session.expires_at"
)

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) put(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// AssignmentContext returns the stored context, empty when unset.
func (s *Store) AssignmentContext(ctx context.Context) (string, error) {
	return s.setting(ctx, keyContext)
}

func (s *Store) SetAssignmentContext(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, keyContext)
		return err
	}
	return s.put(ctx, s.db, keyContext, text)
}

// Model returns the selected model. When none was picked it falls back to the
// configured fallback, then DefaultModel.
func (s *Store) Model(ctx context.Context) (string, error) {
	v, err := s.setting(ctx, keyModel)
	if err != nil || v != "" {
		return v, err
	}
	if s.fallbackModel != "" {
		return s.fallbackModel, nil
	}
	return DefaultModel, nil
}

// SetFallbackModel changes what Model reports before any SetModel.
func (s *Store) SetFallbackModel(model string) {
	s.fallbackModel = strings.TrimSpace(model)
}

func (s *Store) SetModel(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("model is required")
	}
	return s.put(ctx, s.db, keyModel, model)
}

// Session returns the stored session. A zero Session means logged out.
func (s *Store) Session(ctx context.Context) (access.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?, ?)`,
		keySessionToken, keySessionLabel, keySessionExpiresAt)
	if err != nil {
		return access.Session{}, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var sess access.Session
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return access.Session{}, err
		}
		switch k {
		case keySessionToken:
			sess.Token = v
		case keySessionLabel:
			sess.Label = v
		case keySessionExpiresAt:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return access.Session{}, fmt.Errorf("session expiry: %w", err)
			}
			sess.ExpiresAt = time.Unix(0, n).UTC()
		}
	}
	return sess, rows.Err()
}

func (s *Store) SaveSession(ctx context.Context, sess access.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range map[string]string{
		keySessionToken:     sess.Token,
		keySessionLabel:     sess.Label,
		keySessionExpiresAt: strconv.FormatInt(sess.ExpiresAt.UnixNano(), 10),
	} {
		if err := s.put(ctx, tx, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearSession logs out.
func (s *Store) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key IN (?, ?, ?)`,
		keySessionToken, keySessionLabel, keySessionExpiresAt)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Stats summarizes the stored submissions.
func (s *Store) Stats(ctx context.Context) (submission.Stats, error) {
	subs, err := s.List(ctx)
	if err != nil {
		return submission.Stats{}, err
	}
	return submission.Summarize(subs), nil
}
