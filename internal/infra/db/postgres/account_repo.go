package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
)

type AccountRepository struct{ db *sql.DB }

func NewAccountRepository(db *sql.DB) *AccountRepository { return &AccountRepository{db: db} }

// FindByPinHash returns nil, nil when no account matches.
func (r *AccountRepository) FindByPinHash(ctx context.Context, pinHash string) (*access.Account, error) {
	const q = `
SELECT CAST(id AS TEXT), pin_hash, COALESCE(label, ''), COALESCE(api_key, ''), usage_count
FROM access_pins
WHERE pin_hash = $1
LIMIT 1;`
	var (
		a  access.Account
		id string
	)
	err := r.db.QueryRowContext(ctx, q, pinHash).Scan(&id, &a.PinHash, &a.Label, &a.ExternalCredential, &a.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ID = access.AccountID(id)
	return &a, nil
}

func (r *AccountRepository) CredentialFor(ctx context.Context, id access.AccountID) (string, error) {
	const q = `SELECT COALESCE(api_key, '') FROM access_pins WHERE CAST(id AS TEXT) = $1 LIMIT 1;`
	var key string
	err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return key, err
}

func (r *AccountRepository) IncrementUsage(ctx context.Context, id access.AccountID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE access_pins SET usage_count = usage_count + 1 WHERE CAST(id AS TEXT) = $1;`, string(id))
	return err
}
