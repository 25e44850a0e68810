package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server is the gitmatch HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Config holds all dependencies and settings for creating a Server.
type Config struct {
	Handlers HandlersDeps

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a new HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := NewHandlers(cfg.Handlers)

	mux := http.NewServeMux()

	// Ranking surface.
	mux.HandleFunc("POST /v1/search", h.HandleSearch)
	mux.HandleFunc("GET /v1/search/{search_id}/context", h.HandleSearchContext)
	mux.HandleFunc("POST /v1/feed", h.HandleFeed)

	// Pure scoring functions for the ingestion collaborator.
	mux.HandleFunc("POST /v1/quality/evaluate", h.HandleEvaluate)
	mux.HandleFunc("GET /v1/quality/survival", h.HandleSurvival)

	// Write surface.
	mux.HandleFunc("POST /v1/ingest/batch", h.HandleIngestBatch)
	mux.HandleFunc("POST /v1/admin/prune", h.HandleAdminPrune)

	// Health (no middleware-sensitive behavior).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Handlers.Logger, handler)
	handler = loggingMiddleware(cfg.Handlers.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Handlers.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
