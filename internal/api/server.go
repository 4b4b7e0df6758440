// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taibuivan/todos/internal/chat"
	"github.com/taibuivan/todos/internal/platform/config"
	"github.com/taibuivan/todos/internal/platform/constants"
	"github.com/taibuivan/todos/internal/platform/metrics"
	"github.com/taibuivan/todos/internal/platform/middleware"
	"github.com/taibuivan/todos/internal/todo"
	"github.com/taibuivan/todos/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus scrape endpoint.
	Metrics http.Handler

	// Home is the signed-in landing page.
	Home http.HandlerFunc

	// Auth handles magic-link sign-in and sessions.
	Auth *auth.Handler

	// Todos handles the todo list.
	Todos *todo.Handler

	// Chat is the todo assistant. Nil when no model provider is configured.
	Chat *chat.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// The chat routes stay outside the request timeout because a turn streams
// across several model round-trips.
func NewServer(
	context context.Context,
	cfg *config.Config,
	log *slog.Logger,
	sessions middleware.SessionResolver,
	collector *metrics.Collector,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(collector.Middleware)
	r.Use(middleware.RateLimit(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(sessions))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Method(http.MethodGet, "/metrics", h.Metrics)

	requireAPISession := middleware.RequireSession(middleware.DenyUnauthorized)
	requirePageSession := middleware.RequireSession(middleware.RedirectToLogin(constants.LoginPath))

	// # Application
	r.Group(func(timed chi.Router) {
		timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		timed.With(requirePageSession).Get("/", h.Home)
		timed.Mount("/api/auth", h.Auth.Routes())
		timed.With(requireAPISession).Mount("/api/todos", h.Todos.Routes())
	})

	if h.Chat != nil {
		r.With(requireAPISession).Mount("/api/chat", h.Chat.Routes())
	}

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           otelhttp.NewHandler(r, constants.AppName),
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root handler, including tracing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
