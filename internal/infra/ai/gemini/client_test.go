package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
)

func TestScoreReturnsCandidateText(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `{"ai_score": 81, "reasoning": "flat tone"}`}},
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	out, err := c.Score(context.Background(), analysis.ProviderRequest{
		APIKey: "k-123", Model: "gemini-2.5-flash", Excerpt: "essay body", Context: "Biology",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ai_score": 81, "reasoning": "flat tone"}`, out)
	assert.True(t, strings.HasSuffix(gotPath, "gemini-2.5-flash:generateContent"), gotPath)
	assert.Equal(t, "k-123", gotKey)
	assert.Contains(t, gotBody, "essay body")
	assert.Contains(t, gotBody, "Biology")
}

func TestScoreProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "bad", Model: "gemini-2.5-flash", Excerpt: "x",
	})
	require.Error(t, err)
	assert.Equal(t, failure.ProviderError, failure.KindOf(err))
	assert.Contains(t, failure.MessageOf(err), "API key not valid")
}

func TestScoreUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Score(context.Background(), analysis.ProviderRequest{
		APIKey: "k", Model: "gemini-2.5-flash", Excerpt: "x",
	})
	require.Error(t, err)
	assert.Equal(t, failure.ProviderUnreachable, failure.KindOf(err))
}

func TestScoreWithoutKey(t *testing.T) {
	_, err := NewClient("", nil).Score(context.Background(), analysis.ProviderRequest{Model: "m"})
	assert.True(t, failure.Has(err, failure.CredentialMissing))
}
