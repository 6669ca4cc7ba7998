package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/infra/ai/prompt"
)

// Client scores text with the Gemini API. A genai client is built per call
// because each account brings its own API key.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: httpClient}
}

func (c *Client) Score(ctx context.Context, req analysis.ProviderRequest) (string, error) {
	if req.APIKey == "" {
		return "", failure.New(failure.CredentialMissing, "")
	}
	cfg := &genai.ClientConfig{
		APIKey:     req.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", failure.Wrap(failure.ProviderUnreachable, "", fmt.Errorf("create genai client: %w", err))
	}

	resp, err := client.Models.GenerateContent(ctx,
		req.Model,
		genai.Text(prompt.User(req.Excerpt, req.Context)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System(), genai.RoleUser),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return failure.Wrap(failure.ProviderError, providerMessage(apiErr.Message, apiErr.Status), err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return failure.Wrap(failure.ProviderError, providerMessage(apiErrPtr.Message, apiErrPtr.Status), err)
	}
	return failure.Wrap(failure.ProviderUnreachable, "", fmt.Errorf("gemini generate: %w", err))
}

func providerMessage(msg, status string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = strings.TrimSpace(status)
	}
	if msg == "" {
		return failure.OperatorMessage(failure.ProviderError)
	}
	return msg
}
