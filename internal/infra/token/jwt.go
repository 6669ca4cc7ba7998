package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
)

// Claims is the signed payload. It carries the account reference and label,
// never the provider key.
type Claims struct {
	AccountRef string `json:"ref"`
	Label      string `json:"label"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSigner(secret, issuer string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	return &Signer{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// WithClock overrides the time source used when checking expiry.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) Sign(c access.SessionClaims) (string, error) {
	if c.AccountRef == "" {
		return "", errors.New("token: missing account reference")
	}
	if c.ExpiresAt.IsZero() || !c.ExpiresAt.After(c.IssuedAt) {
		return "", errors.New("token: expiry must follow issue time")
	}
	id := c.TokenID
	if id == "" {
		id = uuid.NewString()
	}
	claims := Claims{
		AccountRef: string(c.AccountRef),
		Label:      c.Label,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   string(c.AccountRef),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt.UTC()),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt.UTC()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry. Every rejection is reported as
// failure.SessionExpired.
func (s *Signer) Verify(tokenString string) (access.SessionClaims, error) {
	if tokenString == "" {
		return access.SessionClaims{}, failure.New(failure.SessionExpired, "")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return access.SessionClaims{}, failure.Wrap(failure.SessionExpired, "", err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.AccountRef == "" {
		return access.SessionClaims{}, failure.Wrap(failure.SessionExpired, "", jwt.ErrTokenInvalidClaims)
	}

	out := access.SessionClaims{
		TokenID:    claims.ID,
		AccountRef: access.AccountID(claims.AccountRef),
		Label:      claims.Label,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
