// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the todos HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration from the environment (and .env).
//  2. Start OpenTelemetry export and build the structured logger.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Wire the todo, auth and chat domains.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/taibuivan/todos/internal/api"
	"github.com/taibuivan/todos/internal/chat"
	"github.com/taibuivan/todos/internal/platform/config"
	"github.com/taibuivan/todos/internal/platform/constants"
	"github.com/taibuivan/todos/internal/platform/metrics"
	"github.com/taibuivan/todos/internal/platform/migration"
	pgstore "github.com/taibuivan/todos/internal/platform/postgres"
	redisstore "github.com/taibuivan/todos/internal/platform/redis"
	"github.com/taibuivan/todos/internal/platform/sec"
	"github.com/taibuivan/todos/internal/platform/telemetry"
	"github.com/taibuivan/todos/internal/todo"
	"github.com/taibuivan/todos/internal/users/auth"
)

func main() {
	// ── 1. Bootstrap Logger ───────────────────────────────────────────────
	// Used until the configured logger exists, so startup errors are JSON too.
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// appCtx lives until shutdown and stops background workers.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. Telemetry & Logger ─────────────────────────────────────────────
	providers, err := telemetry.Setup(startupCtx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: constants.AppVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	must(log, err, "start telemetry")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry_shutdown_failed", slog.Any("error", err))
		}
	}()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	baseLog, logFile := telemetry.NewLogger(os.Stdout, telemetry.LogOptions{
		Level:    level,
		FilePath: cfg.LogFile,
		Bridge:   providers.LogHandler,
	})
	defer logFile.Close()

	log = baseLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("telemetry", providers.Enabled()),
		slog.Bool("chat", cfg.ChatEnabled()),
	)

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("postgres_pool_closing")
		pool.Close()
	}()

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("redis_client_closing")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 6. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 7. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// ── 8. Todos ──────────────────────────────────────────────────────────
	todoService := todo.NewService(todo.NewPostgresRepository(pool), collector, log)
	todos := todo.NewCachedService(todoService, todo.NewRedisCache(rdb, cfg.TodoCacheTTL), log)

	must(log, telemetry.RegisterTodoGauge(otel.Meter(constants.AppName), func(ctx context.Context) (int, error) {
		return todoService.Count(ctx, todo.Filter{})
	}), "register todo gauge")

	// ── 9. Auth ───────────────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.AuthSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	authService := auth.NewService(
		auth.NewUserRepository(pool),
		auth.NewSessionRepository(pool),
		auth.NewMagicLinkLedger(rdb),
		tokens,
		auth.NewLogMailer(log),
		cfg.BaseURL,
		log,
	)
	authService.StartSessionSweeper(appCtx, auth.SessionSweepInterval)

	// ── 10. Chat ──────────────────────────────────────────────────────────
	var chatHandler *chat.Handler
	if cfg.ChatEnabled() {
		provider, err := chat.NewGeminiProvider(startupCtx, cfg.GeminiAPIKey, cfg.ChatModel)
		must(log, err, "initialize chat provider")

		relay := chat.NewRelay(provider, chat.NewToolbox(todos), collector)
		chatHandler = chat.NewHandler(relay, chat.NewRedisTranscripts(rdb))
	} else {
		log.Warn("chat_disabled", slog.String("reason", "GEMINI_API_KEY is not set"))
	}

	// ── 11. Health handlers (wired with real dependency checkers) ─────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 12. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Home:      api.NewHomeHandler(cfg.ChatEnabled()),
		Auth:      auth.NewHandler(authService, cfg.BaseURL, strings.HasPrefix(cfg.BaseURL, "https://")),
		Todos:     todo.NewHandler(todos),
		Chat:      chatHandler,
	}

	server := api.NewServer(appCtx, cfg, log, authService, collector, handlers)

	// ── 13. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
	}
	appCancel()

	log.Info("server_stopped")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
