package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/middleware"
)

type fakeSessions struct {
	got string
	err error
}

func (f *fakeSessions) Authenticate(_ context.Context, pin string) (access.Session, error) {
	f.got = pin
	if f.err != nil {
		return access.Session{}, f.err
	}
	return access.Session{Token: "tok", Label: "Lab A", ExpiresIn: 2 * time.Hour}, nil
}

type fakeAnalyzer struct {
	got analysis.Request
	res analysis.Result
	err error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (analysis.Result, error) {
	f.got = req
	return f.res, f.err
}

func newServer(t *testing.T, s *fakeSessions, a *fakeAnalyzer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(Deps{
		Sessions: s,
		Analyzer: a,
		Ready:    map[string]middleware.HealthChecker{},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doReq(t *testing.T, srv *httptest.Server, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAuthSuccess(t *testing.T) {
	s := &fakeSessions{}
	srv := newServer(t, s, &fakeAnalyzer{})

	resp, body := doReq(t, srv, http.MethodPost, "/api/auth", `{"pin":"4242"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "Lab A", body["label"])
	assert.EqualValues(t, 7200, body["expiresIn"])
	assert.Equal(t, "4242", s.got)
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"missing pin", `{}`, nil, http.StatusBadRequest, "validation"},
		{"malformed", `{"pin":`, nil, http.StatusBadRequest, "validation"},
		{"empty body", ``, nil, http.StatusBadRequest, "validation"},
		{"invalid pin", `{"pin":"1"}`, failure.New(failure.InvalidCredential, ""), http.StatusUnauthorized, "invalid_credential"},
		{"no key", `{"pin":"1"}`, failure.New(failure.NoServiceCredential, ""), http.StatusForbidden, "no_service_credential"},
		{"store down", `{"pin":"1"}`, failure.Wrap(failure.Internal, "", assert.AnError), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, &fakeSessions{err: tc.err}, &fakeAnalyzer{})
			resp, body := doReq(t, srv, http.MethodPost, "/api/auth", tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	a := &fakeAnalyzer{res: analysis.Result{AIScore: 73, Reasoning: "**foo**", IsDuplicate: true, ModelUsed: "gemini-2.5-flash", Degraded: true}}
	srv := newServer(t, &fakeSessions{}, a)

	resp, body := doReq(t, srv, http.MethodPost, "/api/analyze",
		`{"text":"essay","context":"History\u0000 101","token":"tok","model":"models/gemini-2.5-pro"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 73, body["ai_score"])
	assert.Equal(t, "**foo**", body["reasoning"])
	assert.Equal(t, true, body["is_duplicate"])
	assert.Equal(t, "gemini-2.5-flash", body["model"])
	_, leaked := body["Degraded"]
	assert.False(t, leaked)

	assert.Equal(t, analysis.Request{Token: "tok", Text: "essay", Context: "History 101", Model: "models/gemini-2.5-pro"}, a.got)
}

func TestAnalyzeTokenFromHeader(t *testing.T) {
	a := &fakeAnalyzer{}
	srv := newServer(t, &fakeSessions{}, a)
	resp, _ := doReq(t, srv, http.MethodPost, "/api/analyze", `{"text":"essay"}`,
		map[string]string{"Authorization": "Bearer header-tok"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "header-tok", a.got.Token)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{failure.New(failure.SessionExpired, ""), http.StatusUnauthorized, "session_expired"},
		{failure.New(failure.CredentialMissing, ""), http.StatusForbidden, "credential_missing"},
		{failure.New(failure.ProviderError, "quota exhausted"), http.StatusInternalServerError, "provider_error"},
		{failure.New(failure.ProviderUnreachable, ""), http.StatusInternalServerError, "provider_unreachable"},
		{failure.New(failure.Validation, "Text is required"), http.StatusBadRequest, "validation"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			srv := newServer(t, &fakeSessions{}, &fakeAnalyzer{err: tc.err})
			resp, body := doReq(t, srv, http.MethodPost, "/api/analyze", `{"text":"x","token":"t"}`, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, failure.MessageOf(tc.err), body["error"])
		})
	}
}

func TestAnalyzeMalformedModelFallsBack(t *testing.T) {
	for _, model := range []string{"a\nb", strings.Repeat("m", middleware.MaxModelLength+72)} {
		a := &fakeAnalyzer{}
		srv := newServer(t, &fakeSessions{}, a)
		payload, err := json.Marshal(map[string]string{"text": "x", "token": "t", "model": model})
		require.NoError(t, err)

		resp, _ := doReq(t, srv, http.MethodPost, "/api/analyze", string(payload), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "t", a.got.Token)
		assert.Empty(t, a.got.Model)
	}
}

// The session check belongs to the analyzer, so an expired token wins over
// any other problem with the request.
func TestAnalyzeExpiredTokenBeatsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"long model":     {"text": "essay", "token": "expired", "model": strings.Repeat("m", 200)},
		"oversized text": {"text": strings.Repeat("a", analysis.MaxTextBytes+1), "token": "expired"},
		"empty text":     {"text": "", "token": "expired"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			a := &fakeAnalyzer{err: failure.New(failure.SessionExpired, "")}
			srv := newServer(t, &fakeSessions{}, a)
			payload, err := json.Marshal(in)
			require.NoError(t, err)

			resp, body := doReq(t, srv, http.MethodPost, "/api/analyze", string(payload), nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "session_expired", body["code"])
			assert.Equal(t, "expired", a.got.Token)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, &fakeSessions{}, &fakeAnalyzer{})
	resp, body := doReq(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = doReq(t, srv, http.MethodGet, "/healthz/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	res, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.Contains(string(raw), "forensic_http_requests_total"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newServer(t, &fakeSessions{}, &fakeAnalyzer{})
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://lab.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(failure.Internal))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(failure.Kind("other")))
}
