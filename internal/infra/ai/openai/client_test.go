package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
)

func TestScore(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ai_score\": 22, \"reasoning\": \"personal voice\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/v1", srv.Client()).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "sk-test", Model: "gpt-4o-mini", Excerpt: "text", Context: "Lab report",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ai_score": 22, "reasoning": "personal voice"}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, maxTokens, got["max_tokens"])
}

func TestScoreReasoningModelUsesCompletionTokens(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/v1", srv.Client()).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "k", Model: "o3-mini", Excerpt: "text",
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.EqualValues(t, maxTokens, got["max_completion_tokens"])
	_, hasMax := got["max_tokens"]
	assert.False(t, hasMax)
}

func TestScoreRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/v1", srv.Client()).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "bad", Model: "gpt-4o-mini", Excerpt: "x",
	})
	assert.Equal(t, failure.ProviderError, failure.KindOf(err))
	assert.Equal(t, "Incorrect API key provided", failure.MessageOf(err))
}

func TestScoreUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := NewClient(url+"/v1", nil).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "k", Model: "gpt-4o-mini", Excerpt: "x",
	})
	assert.Equal(t, failure.ProviderUnreachable, failure.KindOf(err))
}
