package access

import (
	"strings"
	"time"

	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

// AccountID identifier type
type AccountID string

// Account is a credential holder. ExternalCredential is the scoring provider
// key and never leaves the server.
type Account struct {
	ID                 AccountID
	PinHash            string
	Label              string
	ExternalCredential string
	UsageCount         int64
}

// HasServiceCredential reports whether a provider key is provisioned.
func (a *Account) HasServiceCredential() bool {
	return a != nil && strings.TrimSpace(a.ExternalCredential) != ""
}

// SessionClaims are the verified contents of a session credential. They hold a
// reference to the account, never its provider key.
type SessionClaims struct {
	TokenID    string
	AccountRef AccountID
	Label      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Session is what SessionIssuer hands back to the caller.
type Session struct {
	Token     string
	Label     string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// ValidAt reports whether the session can still be presented at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// HashPIN digests a PIN with the content fingerprint algorithm. Plaintext PINs
// are never stored or compared.
func HashPIN(pin string) string {
	return fingerprint.Of(pin).String()
}
