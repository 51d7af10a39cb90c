// Package api exposes the HTTP interface of the ingestion service: health,
// readiness, metrics, and the latest run summary.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/metrics"
)

// ReadyCheck reports whether a downstream dependency is usable.
type ReadyCheck func() error

// Server wires the HTTP handlers to the run state.
type Server struct {
	router chi.Router
	logger *zap.Logger
	ready  []ReadyCheck

	mu      sync.RWMutex
	lastRun *catalog.RunSummary
}

// NewServer constructs a Server with middleware and routes. Ready checks run
// on every /readyz request.
func NewServer(logger *zap.Logger, ready ...ReadyCheck) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger, ready: ready}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs/last", s.lastRunSummary)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RecordRun stores the summary served by /v1/runs/last.
func (s *Server) RecordRun(summary catalog.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &summary
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	for _, check := range s.ready {
		if err := check(); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) lastRunSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastRun
	s.mu.RUnlock()
	if last == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed runs"})
		return
	}
	s.writeJSON(w, http.StatusOK, last)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}
