// Package api exposes the introspection HTTP interface for the monitor.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/breaker"
	"github.com/oddsflow/rosterwatch/internal/discovery"
	"github.com/oddsflow/rosterwatch/internal/validator"
)

// Server wires HTTP handlers to the pipeline's introspection surfaces. The
// service is read-only over HTTP; all signal intake happens in the scan
// loops.
type Server struct {
	router    chi.Router
	queue     *discovery.Queue
	breaker   *breaker.Breaker
	validator *validator.Validator
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(queue *discovery.Queue, brk *breaker.Breaker, val *validator.Validator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:     queue,
		breaker:   brk,
		validator: val,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.stats)
		r.Get("/breaker", s.breakerState)
		r.Get("/signals", s.signals)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// In-memory dependencies are always ready.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statsResponse struct {
	Queue      discovery.Stats `json:"queue"`
	Aggregates int             `json:"validator_aggregates"`
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statsResponse{
		Queue:      s.queue.StatsSnapshot(),
		Aggregates: s.validator.Size(),
	})
}

func (s *Server) breakerState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.breaker.Snapshot())
}

// signals returns queued items matching the requested subjects. Reads are
// non-destructive; the queue expires items by TTL only.
func (s *Server) signals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subjects := q["subject"]
	if len(subjects) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one subject parameter is required")
		return
	}
	group := q.Get("group")
	if group == "" {
		group = "default"
	}
	items := s.queue.PopForSubject(subjects, group)
	s.writeJSON(w, http.StatusOK, items)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
