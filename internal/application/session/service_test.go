package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/infra/token"
)

type fakeAccounts struct {
	mu        sync.Mutex
	byHash    map[string]*access.Account
	lookups   []string
	findErr   error
	incErr    error
	increment map[access.AccountID]int
	block     chan struct{}
}

func newFakeAccounts(accts ...*access.Account) *fakeAccounts {
	f := &fakeAccounts{byHash: map[string]*access.Account{}, increment: map[access.AccountID]int{}}
	for _, a := range accts {
		f.byHash[a.PinHash] = a
	}
	return f
}

func (f *fakeAccounts) FindByPinHash(_ context.Context, h string) (*access.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, h)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byHash[h], nil
}

func (f *fakeAccounts) CredentialFor(_ context.Context, id access.AccountID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byHash {
		if a.ID == id {
			return a.ExternalCredential, nil
		}
	}
	return "", nil
}

func (f *fakeAccounts) IncrementUsage(_ context.Context, id access.AccountID) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increment[id]++
	return f.incErr
}

var now = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo *fakeAccounts) (*Service, *token.Signer) {
	t.Helper()
	signer, err := token.NewSigner("s3cret", "forensic-lab")
	require.NoError(t, err)
	signer.WithClock(func() time.Time { return now })
	return &Service{
		Accounts: repo,
		Tokens:   signer,
		Clock:    application.Fixed(now),
		TTL:      2 * time.Hour,
		Log:      zaptest.NewLogger(t),
	}, signer
}

func labAccount() *access.Account {
	return &access.Account{
		ID:                 "acct-7",
		PinHash:            access.HashPIN("4242"),
		Label:              "Lab 7",
		ExternalCredential: "provider-key-7",
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newFakeAccounts(labAccount())
	svc, signer := newService(t, repo)

	sess, err := svc.Authenticate(context.Background(), "4242")
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "Lab 7", sess.Label)
	assert.Equal(t, 2*time.Hour, sess.ExpiresIn)
	assert.Equal(t, now.Add(2*time.Hour), sess.ExpiresAt)
	assert.NotContains(t, sess.Token, "provider-key-7")

	claims, err := signer.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, access.AccountID("acct-7"), claims.AccountRef)
	assert.Equal(t, 1, repo.increment["acct-7"])
}

func TestAuthenticateComparesDigestOnly(t *testing.T) {
	repo := newFakeAccounts(labAccount())
	svc, _ := newService(t, repo)

	_, err := svc.Authenticate(context.Background(), "4242")
	require.NoError(t, err)
	svc.Wait()
	require.Len(t, repo.lookups, 1)
	assert.Equal(t, access.HashPIN("4242"), repo.lookups[0])
	assert.NotEqual(t, "4242", repo.lookups[0])
}

func TestAuthenticateFailures(t *testing.T) {
	noKey := labAccount()
	noKey.ExternalCredential = " "

	tests := []struct {
		name string
		repo *fakeAccounts
		pin  string
		kind failure.Kind
	}{
		{"empty pin", newFakeAccounts(labAccount()), "  ", failure.Validation},
		{"unknown pin", newFakeAccounts(labAccount()), "0000", failure.InvalidCredential},
		{"no provider key", newFakeAccounts(noKey), "4242", failure.NoServiceCredential},
		{"store down", &fakeAccounts{findErr: errors.New("conn refused")}, "4242", failure.Internal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(t, tc.repo)
			_, err := svc.Authenticate(context.Background(), tc.pin)
			svc.Wait()
			require.Error(t, err)
			assert.Equal(t, tc.kind, failure.KindOf(err))
			assert.Empty(t, tc.repo.increment)
		})
	}
}

func TestUsageFailureDoesNotBlockSession(t *testing.T) {
	repo := newFakeAccounts(labAccount())
	repo.incErr = errors.New("deadlock")
	repo.block = make(chan struct{})
	svc, _ := newService(t, repo)

	sess, err := svc.Authenticate(context.Background(), "4242")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	close(repo.block)
	svc.Wait()
	assert.Equal(t, 1, repo.increment["acct-7"])
}

func TestDefaultTTL(t *testing.T) {
	repo := newFakeAccounts(labAccount())
	svc, _ := newService(t, repo)
	svc.TTL = 0
	sess, err := svc.Authenticate(context.Background(), "4242")
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, DefaultTTL, sess.ExpiresIn)
}
