package analysis

import (
	"context"

	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

// LogRepository port for the analysis log
type LogRepository interface {
	HasFingerprint(ctx context.Context, fp fingerprint.Digest) (bool, error)
	Append(ctx context.Context, e *LogEntry) error
}

// Provider returns the raw text produced by the scoring model. Implementations
// classify errors with the failure package: explicit provider rejections as
// failure.ProviderError, transport problems as failure.ProviderUnreachable.
type Provider interface {
	Score(ctx context.Context, req ProviderRequest) (string, error)
}

// FingerprintIndex is an optional fast path in front of LogRepository.
type FingerprintIndex interface {
	Seen(ctx context.Context, fp fingerprint.Digest) (bool, error)
	Remember(ctx context.Context, fp fingerprint.Digest) error
}

// RawArchive keeps provider replies that failed to parse, for diagnostics.
type RawArchive interface {
	Archive(ctx context.Context, key string, body []byte) (string, error)
}
