package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	sessions  *prometheus.CounterVec
	analyses  *prometheus.CounterVec
	duplicate prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forensic_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_sessions_total",
			Help: "Session issue attempts by outcome.",
		}, []string{"outcome"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_analyses_total",
			Help: "Analysis calls by outcome and model.",
		}, []string{"outcome", "model"}),
		duplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forensic_duplicate_submissions_total",
			Help: "Analyses whose fingerprint was already logged.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight, m.sessions, m.analyses, m.duplicate,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// SessionIssued counts a session attempt; outcome is "ok" or a failure kind.
func (m *Metrics) SessionIssued(outcome string) {
	m.sessions.WithLabelValues(outcome).Inc()
}

// Analysed counts an analysis call. outcome is "ok", "degraded" or a failure kind.
func (m *Metrics) Analysed(outcome, model string, duplicate bool) {
	m.analyses.WithLabelValues(outcome, model).Inc()
	if duplicate {
		m.duplicate.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
