package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 2 * time.Hour

const usageUpdateTimeout = 5 * time.Second

// Service issues session credentials for PIN holders.
// Service is safe for concurrent use.
type Service struct {
	Accounts access.Repository
	Tokens   access.TokenSigner
	Clock    application.Clock
	TTL      time.Duration
	Log      *zap.Logger

	pending sync.WaitGroup
}

// Authenticate verifies pin and mints a session. Unknown PINs fail with
// failure.InvalidCredential, accounts without a provider key with
// failure.NoServiceCredential.
func (s *Service) Authenticate(ctx context.Context, pin string) (access.Session, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return access.Session{}, failure.New(failure.Validation, "PIN is required")
	}

	// PIN tidak pernah dibandingkan dalam bentuk plaintext
	hash := access.HashPIN(pin)
	acct, err := s.Accounts.FindByPinHash(ctx, hash)
	if err != nil {
		return access.Session{}, failure.Wrap(failure.Internal, "", err)
	}
	if acct == nil {
		return access.Session{}, failure.New(failure.InvalidCredential, "")
	}
	if !acct.HasServiceCredential() {
		return access.Session{}, failure.New(failure.NoServiceCredential, "")
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := application.OrSystem(s.Clock).Now()
	claims := access.SessionClaims{
		AccountRef: acct.ID,
		Label:      acct.Label,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	tok, err := s.Tokens.Sign(claims)
	if err != nil {
		return access.Session{}, failure.Wrap(failure.Internal, "", err)
	}

	s.countUsage(ctx, acct.ID)

	return access.Session{
		Token:     tok,
		Label:     acct.Label,
		ExpiresIn: ttl,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// countUsage bumps the usage counter in the background. Failures are logged
// and never reach the caller.
func (s *Service) countUsage(ctx context.Context, id access.AccountID) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageUpdateTimeout)
		defer cancel()
		if err := s.Accounts.IncrementUsage(ctx, id); err != nil {
			s.logger().Warn("usage counter update failed",
				zap.String("account", string(id)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background usage updates have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
