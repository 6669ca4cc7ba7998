package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/forensic-lab/internal/domain/access"
	"github.com/bryanwahyu/forensic-lab/internal/domain/analysis"
	"github.com/bryanwahyu/forensic-lab/internal/domain/failure"
	"github.com/bryanwahyu/forensic-lab/internal/middleware"
)

// SessionIssuer is the PIN login use case.
type SessionIssuer interface {
	Authenticate(ctx context.Context, pin string) (access.Session, error)
}

// Analyzer is the gated analysis use case.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

type Deps struct {
	Sessions       SessionIssuer
	Analyzer       Analyzer
	Metrics        *middleware.Metrics
	Ready          map[string]middleware.HealthChecker
	AllowedOrigins []string
	Log            *zap.Logger
}

type Router struct {
	sessions SessionIssuer
	analyzer Analyzer
	metrics  *middleware.Metrics
	log      *zap.Logger
}

// maxBodyBytes leaves room for JSON escaping around the largest allowed text.
const maxBodyBytes = 2*analysis.MaxTextBytes + 64<<10

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := &Router{sessions: d.Sessions, analyzer: d.Analyzer, metrics: d.Metrics, log: d.Log}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(d.Log))
	mux.Use(d.Metrics.Middleware)

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.ReadinessHandler(d.Ready))
	mux.Handle("/metrics", d.Metrics.Handler())

	mux.Route("/api", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
		rt.Use(middleware.SessionBearer)
		rt.Post("/auth", r.wrap(r.handleAuth))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			kind := failure.KindOf(err)
			if kind == failure.Internal {
				r.log.Error("request failed",
					zap.String("request_id", middleware.RequestID(req.Context())),
					zap.String("path", req.URL.Path),
					zap.Error(err),
				)
			}
			writeError(w, StatusFor(kind), failure.MessageOf(err), kind)
		}
	}
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.Validation:
		return http.StatusBadRequest
	case failure.InvalidCredential, failure.SessionExpired:
		return http.StatusUnauthorized
	case failure.NoServiceCredential, failure.CredentialMissing:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type authRequest struct {
	PIN string `json:"pin"`
}

type authResponse struct {
	Token     string `json:"token"`
	Label     string `json:"label"`
	ExpiresIn int64  `json:"expiresIn"`
}

// POST /api/auth
// Body: {"pin": "<pin>"}
func (r *Router) handleAuth(w http.ResponseWriter, req *http.Request) error {
	var body authRequest
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidatePIN(body.PIN); err != nil {
		return failure.Wrap(failure.Validation, err.Error(), err)
	}

	sess, err := r.sessions.Authenticate(req.Context(), body.PIN)
	if err != nil {
		r.metrics.SessionIssued(string(failure.KindOf(err)))
		return err
	}
	r.metrics.SessionIssued("ok")

	writeJSON(w, http.StatusOK, authResponse{
		Token:     sess.Token,
		Label:     sess.Label,
		ExpiresIn: int64(sess.ExpiresIn.Seconds()),
	})
	return nil
}

type analyzeRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
	Token   string `json:"token"`
	Model   string `json:"model"`
}

// POST /api/analyze
// Body: {"text": "...", "context": "...", "token": "<session>", "model": "..."}
// The token may also come as "Authorization: Bearer <session>".
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body analyzeRequest
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	token := body.Token
	if token == "" {
		token = middleware.BearerFrom(req.Context())
	}
	// model yang aneh diperlakukan kosong, nanti jatuh ke default
	model := body.Model
	if err := middleware.ValidateModel(model); err != nil {
		model = ""
	}

	res, err := r.analyzer.Analyze(req.Context(), analysis.Request{
		Token:   token,
		Text:    body.Text,
		Context: middleware.SanitizeContext(body.Context),
		Model:   model,
	})
	if err != nil {
		r.metrics.Analysed(string(failure.KindOf(err)), "", false)
		return err
	}
	outcome := "ok"
	if res.Degraded {
		outcome = "degraded"
	}
	r.metrics.Analysed(outcome, res.ModelUsed, res.IsDuplicate)

	writeJSON(w, http.StatusOK, res)
	return nil
}

func decodeJSON(w http.ResponseWriter, req *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return failure.Wrap(failure.Validation, "Request body is too large", err)
		case errors.Is(err, io.EOF):
			return failure.Wrap(failure.Validation, "Request body is required", err)
		default:
			return failure.Wrap(failure.Validation, "Malformed JSON body", err)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string       `json:"error"`
	Code  failure.Kind `json:"code"`
}

func writeError(w http.ResponseWriter, status int, msg string, kind failure.Kind) {
	writeJSON(w, status, errorBody{Error: msg, Code: kind})
}
