package access

import "context"

// Repository port for the credential table
type Repository interface {
	// FindByPinHash returns nil, nil when no account matches.
	FindByPinHash(ctx context.Context, pinHash string) (*Account, error)
	// CredentialFor returns "" when the account or its key is gone.
	CredentialFor(ctx context.Context, id AccountID) (string, error)
	IncrementUsage(ctx context.Context, id AccountID) error
}

// TokenSigner mints and verifies session credentials with a process-wide secret.
type TokenSigner interface {
	Sign(claims SessionClaims) (string, error)
	Verify(token string) (SessionClaims, error)
}
