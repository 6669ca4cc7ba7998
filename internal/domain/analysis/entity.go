package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/forensic-lab/internal/domain/fingerprint"
)

// LogEntry is an append-only analysis log row. Duplicates of the same
// fingerprint are written as new rows, never merged.
type LogEntry struct {
	Fingerprint fingerprint.Digest `json:"content_hash"`
	AIScore     int                `json:"ai_score"`
	Model       string             `json:"model_used"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Request is one gated analysis call.
type Request struct {
	Token   string
	Text    string
	Context string
	Model   string
}

// Result is returned by the gateway. Degraded marks a provider reply that could
// not be parsed; it is still a successful call.
type Result struct {
	AIScore     int    `json:"ai_score"`
	Reasoning   string `json:"reasoning"`
	IsDuplicate bool   `json:"is_duplicate"`
	ModelUsed   string `json:"model"`
	Degraded    bool   `json:"-"`
}

// ProviderRequest is what gets sent to a scoring provider. Excerpt is already
// bounded; adapters render it into their own prompt.
type ProviderRequest struct {
	APIKey  string
	Model   string
	Excerpt string
	Context string
}

// MaxTextBytes bounds a submission body.
const MaxTextBytes = 1 << 20

// ValidateText rejects an empty, oversized or non-UTF-8 submission body.
// The returned message is safe to show an operator.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("Text is required")
	}
	if len(text) > MaxTextBytes {
		return fmt.Errorf("Text exceeds %d bytes", MaxTextBytes)
	}
	if !utf8.ValidString(text) {
		return errors.New("Text must be valid UTF-8")
	}
	return nil
}

// DefaultContext is used when the caller gives no assignment context.
const DefaultContext = "General Academic Assignment"

// Excerpt returns at most limit runes of text. A limit <= 0 returns text unchanged.
func Excerpt(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
