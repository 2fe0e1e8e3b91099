// Package server wires the HTTP routes and runs the proxy with graceful
// shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/argobridge/argobridge/internal/config"
	"github.com/argobridge/argobridge/internal/handlers"
	"github.com/argobridge/argobridge/internal/middleware"
)

type Server struct {
	config  *config.Manager
	logger  *slog.Logger
	httpSrv *http.Server
}

func New(cfgMgr *config.Manager, logger *slog.Logger) *Server {
	cfg := cfgMgr.Get()

	h := handlers.New(cfgMgr, logger)
	mw := middleware.NewSet(cfgMgr, logger)

	mux := http.NewServeMux()
	api := mw.DefaultChain()
	probe := mw.HealthChain()

	mux.Handle("POST /v1/chat/completions", api.Handler(http.HandlerFunc(h.ChatCompletions)))
	mux.Handle("POST /v1/completions", api.Handler(http.HandlerFunc(h.Completions)))
	mux.Handle("POST /v1/responses", api.Handler(http.HandlerFunc(h.Responses)))
	mux.Handle("POST /v1/messages", api.Handler(http.HandlerFunc(h.Messages)))
	mux.Handle("GET /v1/models", api.Handler(http.HandlerFunc(h.Models)))
	mux.Handle("GET /health", probe.Handler(http.HandlerFunc(h.Health)))

	return &Server{
		config: cfgMgr,
		logger: logger,
		httpSrv: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: mux,
			// Write timeout stays generous: streamed replies hold the
			// connection open for the duration of the upstream call.
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server shutting down")
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
