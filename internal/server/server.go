// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/noldarim/pipewatch/internal/config"
	"github.com/noldarim/pipewatch/internal/dashboard"
)

// Server is the REST + WebSocket API server.
type Server struct {
	httpServer  *http.Server
	broadcaster *CycleBroadcaster
}

// New creates and wires up the API server. Call Run to start listening.
func New(ctx context.Context, cfg *config.ServerConfig, state *dashboard.State, refresher Refresher) *Server {
	registry := NewClientRegistry()
	handlers := NewHandlers(ctx, state, refresher, registry)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           NewRouter(cfg, handlers, registry, state),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		broadcaster: NewCycleBroadcaster(state, registry),
	}
}

// NewRouter builds the chi router with the middleware chain and all routes.
func NewRouter(cfg *config.ServerConfig, handlers *Handlers, registry *ClientRegistry, state *dashboard.State) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recovery)
	r.Use(Logger)
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/healthz", handlers.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pipelines", handlers.GetPipelines)
		r.Get("/pipelines/{name}", handlers.GetPipeline)
		r.Post("/refresh", handlers.Refresh)
	})
	r.Get("/ws", HandleWebSocket(registry, state, cfg.AllowedOrigins))

	return r
}

// Run starts the cycle broadcaster and the HTTP server. It blocks until the
// server is shut down.
func (s *Server) Run(ctx context.Context) error {
	go s.broadcaster.Run(ctx)

	getLog().Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
