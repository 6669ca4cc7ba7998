package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByPinHash returns nil, nil when no account matches.
func (r *AccountRepository) FindByPinHash(ctx context.Context, pinHash string) (*access.Account, error) {
	const q = `
SELECT id, pin_hash, label, api_key, usage_count
FROM access_pins
WHERE pin_hash=?
LIMIT 1;
`
	var (
		a      access.Account
		id     string
		label  sql.NullString
		apiKey sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, pinHash).Scan(&id, &a.PinHash, &label, &apiKey, &a.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ID = access.AccountID(id)
	a.Label = nullString(label)
	a.ExternalCredential = nullString(apiKey)
	return &a, nil
}

// CredentialFor returns "" when the account or its key no longer exists.
func (r *AccountRepository) CredentialFor(ctx context.Context, id access.AccountID) (string, error) {
	const q = `SELECT api_key FROM access_pins WHERE id=? LIMIT 1;`
	var key sql.NullString
	err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return nullString(key), nil
}

func (r *AccountRepository) IncrementUsage(ctx context.Context, id access.AccountID) error {
	const q = `UPDATE access_pins SET usage_count = usage_count + 1 WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, string(id))
	return err
}
