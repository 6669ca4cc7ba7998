package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/application"
	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	domain "github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

const (
	DefaultMaxPromptChars = 5000
	DefaultTimeout        = 60 * time.Second
)

// Service implements the gated analysis call.
// Index and Archive are optional.
type Service struct {
	Tokens   access.TokenSigner
	Accounts access.Repository
	Logs     domain.LogRepository
	Index    domain.FingerprintIndex
	Archive  domain.RawArchive
	Provider domain.Provider
	Models   *domain.Catalog

	MaxPromptChars int
	Timeout        time.Duration
	Clock          application.Clock
	Log            *zap.Logger
}

// Analyze verifies the session, scores req.Text with the provider and appends
// a log row keyed by the text's fingerprint. Unparseable provider output is
// not an error; the result comes back with Degraded set.
func (s *Service) Analyze(ctx context.Context, req domain.Request) (domain.Result, error) {
	// verify dulu, sebelum lookup credential atau call ke provider
	claims, err := s.Tokens.Verify(req.Token)
	if err != nil {
		if failure.KindOf(err) != failure.SessionExpired {
			err = failure.Wrap(failure.SessionExpired, "", err)
		}
		return domain.Result{}, err
	}
	if err := domain.ValidateText(req.Text); err != nil {
		return domain.Result{}, failure.Wrap(failure.Validation, err.Error(), err)
	}

	apiKey, err := s.Accounts.CredentialFor(ctx, claims.AccountRef)
	if err != nil {
		return domain.Result{}, failure.Wrap(failure.Internal, "", fmt.Errorf("resolve credential: %w", err))
	}
	if strings.TrimSpace(apiKey) == "" {
		return domain.Result{}, failure.New(failure.CredentialMissing, "")
	}

	fp := fingerprint.Of(req.Text)
	dup := s.seen(ctx, fp)

	model := s.Models.Resolve(req.Model)
	if req.Model != "" && !s.Models.Allowed(req.Model) {
		s.logger().Info("requested model not allowed, using default",
			zap.String("requested", req.Model),
			zap.String("model", model),
		)
	}
	assignment := strings.TrimSpace(req.Context)
	if assignment == "" {
		assignment = domain.DefaultContext
	}

	raw, err := s.score(ctx, domain.ProviderRequest{
		APIKey:  apiKey,
		Model:   model,
		Excerpt: domain.Excerpt(req.Text, s.maxPromptChars()),
		Context: assignment,
	})
	if err != nil {
		s.logger().Warn("scoring provider call failed",
			zap.String("model", model),
			zap.String("kind", string(failure.KindOf(err))),
			zap.Error(err),
		)
		return domain.Result{}, err
	}

	verdict := domain.ParseProviderText(raw)
	if verdict.Degraded {
		s.logger().Warn("provider reply did not parse, using fallback",
			zap.String("model", model),
			zap.Int("raw_len", len(raw)),
		)
		s.archive(ctx, fp, raw)
	}

	entry := &domain.LogEntry{
		Fingerprint: fp,
		AIScore:     verdict.AIScore,
		Model:       model,
		CreatedAt:   application.OrSystem(s.Clock).Now(),
	}
	if err := s.Logs.Append(ctx, entry); err != nil {
		s.logger().Error("analysis log write failed",
			zap.String("content_hash", fp.String()),
			zap.Error(err),
		)
	} else if s.Index != nil {
		if err := s.Index.Remember(ctx, fp); err != nil {
			s.logger().Warn("fingerprint index update failed", zap.Error(err))
		}
	}

	return domain.Result{
		AIScore:     verdict.AIScore,
		Reasoning:   verdict.Reasoning,
		IsDuplicate: dup,
		ModelUsed:   model,
		Degraded:    verdict.Degraded,
	}, nil
}

// seen reports a prior log entry for fp. Lookup errors are logged and
// treated as "not seen"; the duplicate flag never blocks an analysis.
func (s *Service) seen(ctx context.Context, fp fingerprint.Digest) bool {
	if s.Index != nil {
		ok, err := s.Index.Seen(ctx, fp)
		if err == nil && ok {
			return true
		}
		if err != nil {
			s.logger().Warn("fingerprint index lookup failed", zap.Error(err))
		}
	}
	ok, err := s.Logs.HasFingerprint(ctx, fp)
	if err != nil {
		s.logger().Warn("duplicate lookup failed", zap.String("content_hash", fp.String()), zap.Error(err))
		return false
	}
	return ok
}

// score runs one provider call under the configured deadline. No retries.
func (s *Service) score(ctx context.Context, req domain.ProviderRequest) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.Provider.Score(callCtx, req)
	if err == nil {
		return raw, nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "", failure.Wrap(failure.ProviderUnreachable, "", err)
	case failure.KindOf(err) == failure.ProviderError, failure.KindOf(err) == failure.ProviderUnreachable:
		return "", err
	default:
		return "", failure.Wrap(failure.ProviderUnreachable, "", err)
	}
}

func (s *Service) archive(ctx context.Context, fp fingerprint.Digest, raw string) {
	if s.Archive == nil || raw == "" {
		return
	}
	now := application.OrSystem(s.Clock).Now()
	key := fmt.Sprintf("degraded/%s/%s-%s.txt", now.Format("2006/01/02"), fp.String()[:16], uuid.NewString())
	if _, err := s.Archive.Archive(ctx, key, []byte(raw)); err != nil {
		s.logger().Warn("archiving degraded reply failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) maxPromptChars() int {
	if s.MaxPromptChars <= 0 {
		return DefaultMaxPromptChars
	}
	return s.MaxPromptChars
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
