package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

// The queries bind $N placeholders by position, which sqlite accepts too, so an
// embedded sqlite database with an equivalent schema stands in for Postgres.
var testSchema = []string{
	`CREATE TABLE access_pins (
  id          TEXT    NOT NULL PRIMARY KEY,
  pin_hash    TEXT    NOT NULL UNIQUE,
  label       TEXT    NULL,
  api_key     TEXT    NULL,
  usage_count INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE analysis_logs (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  content_hash TEXT    NOT NULL,
  ai_score     INTEGER NOT NULL,
  model_used   TEXT    NOT NULL,
  created_at   TEXT    NOT NULL
)`,
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range testSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func seedAccount(t *testing.T, db *sql.DB, id, pinHash string, label, apiKey any) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO access_pins (id, pin_hash, label, api_key) VALUES (?,?,?,?)`, id, pinHash, label, apiKey)
	require.NoError(t, err)
}

func TestAccountRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "7d3c1b8e-0000-4000-8000-000000000001", "hash-a", "Lab A", "key-a")
	seedAccount(t, db, "7d3c1b8e-0000-4000-8000-000000000002", "hash-b", nil, nil)
	repo := NewAccountRepository(db)

	acct, err := repo.FindByPinHash(ctx, "hash-a")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, access.Account{
		ID:                 "7d3c1b8e-0000-4000-8000-000000000001",
		PinHash:            "hash-a",
		Label:              "Lab A",
		ExternalCredential: "key-a",
	}, *acct)

	acct, err = repo.FindByPinHash(ctx, "hash-b")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Empty(t, acct.Label, "NULL label scans as empty")
	assert.Empty(t, acct.ExternalCredential)

	acct, err = repo.FindByPinHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, acct)

	key, err := repo.CredentialFor(ctx, "7d3c1b8e-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "key-a", key)
	key, err = repo.CredentialFor(ctx, "7d3c1b8e-0000-4000-8000-000000000002")
	require.NoError(t, err)
	assert.Empty(t, key)
	key, err = repo.CredentialFor(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, repo.IncrementUsage(ctx, "7d3c1b8e-0000-4000-8000-000000000001"))
	require.NoError(t, repo.IncrementUsage(ctx, "7d3c1b8e-0000-4000-8000-000000000001"))
	require.NoError(t, repo.IncrementUsage(ctx, "gone"))
	acct, err = repo.FindByPinHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, acct.UsageCount)
}

func TestAnalysisLogRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAnalysisLogRepository(db)
	fp := fingerprint.Of("An essay.")

	found, err := repo.HasFingerprint(ctx, fp)
	require.NoError(t, err)
	assert.False(t, found)

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, &analysis.LogEntry{Fingerprint: fp, AIScore: 64, Model: "gemini-2.5-pro", CreatedAt: at}))
	require.NoError(t, repo.Append(ctx, &analysis.LogEntry{Fingerprint: fp, AIScore: 70}))

	found, err = repo.HasFingerprint(ctx, fp)
	require.NoError(t, err)
	assert.True(t, found)

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM analysis_logs WHERE content_hash=?`, fp.String()).Scan(&rows))
	assert.Equal(t, 2, rows, "a repeated fingerprint gets its own row")

	var model string
	require.NoError(t, db.QueryRow(`SELECT model_used FROM analysis_logs WHERE ai_score=70`).Scan(&model))
	assert.Equal(t, "-", model)

	err = repo.Append(ctx, &analysis.LogEntry{Fingerprint: "not-a-digest", AIScore: 1})
	assert.ErrorIs(t, err, fingerprint.ErrMalformed)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM analysis_logs`).Scan(&rows))
	assert.Equal(t, 2, rows)
}
