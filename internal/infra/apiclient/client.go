package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/domain/submission"
)

// Client talks to the forensic API on behalf of the CLI.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type authResponse struct {
	Token     string `json:"token"`
	Label     string `json:"label"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Login exchanges a PIN for a session. ExpiresAt is computed locally.
func (c *Client) Login(ctx context.Context, pin string) (access.Session, error) {
	var out authResponse
	if err := c.post(ctx, "/api/auth", map[string]string{"pin": pin}, &out); err != nil {
		return access.Session{}, err
	}
	if out.Token == "" {
		return access.Session{}, failure.New(failure.Internal, "Backend returned an empty session")
	}
	ttl := time.Duration(out.ExpiresIn) * time.Second
	return access.Session{
		Token:     out.Token,
		Label:     out.Label,
		ExpiresIn: ttl,
		ExpiresAt: c.now().Add(ttl),
	}, nil
}

type analyzeBody struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
	Token   string `json:"token"`
	Model   string `json:"model,omitempty"`
}

type analyzeResponse struct {
	AIScore     json.Number `json:"ai_score"`
	Reasoning   string      `json:"reasoning"`
	IsDuplicate bool        `json:"is_duplicate"`
	Model       string      `json:"model"`
}

// Analyze runs one analysis. The result timestamp is left for the caller.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (submission.Result, error) {
	body := analyzeBody{Text: req.Text, Context: req.Context, Token: req.Token, Model: req.Model}
	var out analyzeResponse
	if err := c.post(ctx, "/api/analyze", body, &out); err != nil {
		return submission.Result{}, err
	}
	score, err := out.AIScore.Float64()
	if err != nil {
		return submission.Result{}, failure.Wrap(failure.Internal, "Backend returned an invalid score", err)
	}
	return submission.Result{
		AIScore:     clamp(score),
		Reasoning:   out.Reasoning,
		IsDuplicate: out.IsDuplicate,
		ModelUsed:   out.Model,
	}, nil
}

// Health reports whether the backend answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return failure.Wrap(failure.Internal, "Backend returned a malformed response", err)
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)

	kind := kindFor(eb.Code, resp.StatusCode)
	msg := strings.TrimSpace(eb.Error)
	if kind == failure.SessionExpired || msg == "" {
		msg = failure.OperatorMessage(kind)
	}
	return failure.Wrap(kind, msg, fmt.Errorf("%s: http %d", resp.Request.URL.Path, resp.StatusCode))
}

var knownKinds = map[failure.Kind]bool{
	failure.InvalidCredential:   true,
	failure.NoServiceCredential: true,
	failure.SessionExpired:      true,
	failure.CredentialMissing:   true,
	failure.ProviderError:       true,
	failure.ProviderUnreachable: true,
	failure.Validation:          true,
	failure.Internal:            true,
}

func kindFor(code string, status int) failure.Kind {
	if k := failure.Kind(code); knownKinds[k] {
		return k
	}
	switch status {
	case http.StatusBadRequest:
		return failure.Validation
	case http.StatusUnauthorized:
		return failure.SessionExpired
	case http.StatusForbidden:
		return failure.CredentialMissing
	default:
		return failure.Internal
	}
}

func unreachable(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return failure.Wrap(failure.Internal, "Backend unreachable", err)
}

func clamp(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v + 0.5)
	}
}
