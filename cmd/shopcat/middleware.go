package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	metrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	middlewarestd "github.com/slok/go-http-metrics/middleware/std"
	"golang.org/x/time/rate"

	"shopcat/internal/config"
	"shopcat/internal/logging"
)

const requestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

type logger struct {
	http.Handler
}

func (l *logger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w}
	l.Handler.ServeHTTP(sw, r)
	if r.URL.Path == "/ready" || r.URL.Path == "/metrics" {
		return
	}
	slog.Info("request",
		"method", r.Method,
		"url", r.URL.Path,
		"query", r.URL.Query(),
		"status", sw.status,
		"requestID", w.Header().Get(requestIDHeader),
		"duration", time.Since(start),
	)
}

type recoverer struct {
	http.Handler
}

func (r *recoverer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			slog.ErrorContext(req.Context(), "panic recovered", "error", err, "stack", string(debug.Stack()))
			writeStatus(w, "Internal error", http.StatusInternalServerError)
		}
	}()
	r.Handler.ServeHTTP(w, req)
}

// requestID echoes a caller supplied UUID or mints one, and tags the request context with it.
type requestID struct {
	http.Handler
}

func (h *requestID) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)
	h.Handler.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
}

// limiter sheds load with a 429 before any upstream call is made. Probes are never limited.
type limiter struct {
	http.Handler
	limiter *rate.Limiter
}

func (l *limiter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ready" || r.URL.Path == "/metrics" || l.limiter.Allow() {
		l.Handler.ServeHTTP(w, r)
		return
	}
	slog.WarnContext(r.Context(), "rate limited", "url", r.URL.Path)
	w.Header().Set("Retry-After", "1")
	writeStatus(w, "Too many requests", http.StatusTooManyRequests)
}

func writeStatus(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{msg, status})
}

func WithMiddleware(h http.Handler, rl config.RateLimitConfig, registry prometheus.Registerer) http.Handler {
	mdlw := middleware.New(middleware.Config{
		Recorder: metrics.NewRecorder(metrics.Config{Registry: registry}),
	})
	h = middlewarestd.Handler("", mdlw, h)
	if rl.RPS > 0 {
		h = &limiter{Handler: h, limiter: rate.NewLimiter(rate.Limit(rl.RPS), max(rl.Burst, 1))}
	}
	return &logger{
		&recoverer{
			&requestID{h},
		},
	}
}
