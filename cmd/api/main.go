// Package main is the entry point for the FixMyStreet API server.
//
// It loads configuration, opens the database pool, builds the lifecycle
// service on top of the repositories and the notification dispatcher, mounts
// the report, confirmation and city handlers on the core chassis, and serves
// HTTP until SIGINT or SIGTERM.
//
// Confirmation and report emails are not sent from here. Each lifecycle
// transition writes its messages to the outbox in the same transaction and
// hands them to the notification queue after commit, which the email worker
// consumes. A background relay retries outbox rows the queue did not take.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"fixmystreet/internal/api/handlers"
	"fixmystreet/internal/config"
	"fixmystreet/internal/core"
	"fixmystreet/internal/db"
	"fixmystreet/internal/lifecycle"
	"fixmystreet/internal/queue"
	"fixmystreet/internal/security"
	"fixmystreet/internal/types"
)

// slogAdapter wraps *slog.Logger to implement types.Logger for the
// lifecycle service.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	var provider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}
	cfg, err := config.LoadConfig(provider, config.ComponentAPI)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("fixmystreet API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	svc, err := lifecycle.NewService(lifecycle.Deps{
		Cities:      db.NewCityRepository(pool),
		Reports:     db.NewReportRepository(pool),
		Updates:     db.NewUpdateRepository(pool),
		Subscribers: db.NewSubscriberRepository(pool),
		Outbox:      db.NewOutboxRepository(pool),
		Tx:          db.NewTxManager(pool),
		Dispatcher:  queue.NewDispatcher(sqs.NewFromConfig(awsCfg), cfg.AWS.NotificationQueue, logger),
		Tokens:      lifecycle.RandomTokens{},
		Clock:       types.RealClock{},
		Logger:      &slogAdapter{logger: logger.With("component", "lifecycle")},
		Settings: lifecycle.Settings{
			BaseURL:    cfg.Server.PublicBaseURL,
			AdminEmail: cfg.Site.AdminEmail,
			RelayDelay: cfg.Site.OutboxRelayDelay,
		},
	})
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating lifecycle service: %w", err)
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, core.FuncProbe{ProbeName: "database", Fn: pool.Ping})

	relayCtx, stopRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		runOutboxRelay(relayCtx, svc, cfg.Site.OutboxRelayInterval, logger.With("component", "outbox_relay"))
	}()
	srv.Closers = append(srv.Closers, func() {
		stopRelay()
		<-relayDone
	}, pool.Close)

	photoChecker, err := security.NewURLChecker(nil)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating photo url checker: %w", err)
	}

	registerHandlers(srv, svc, logger, handlers.WithPhotoURLChecker(photoChecker))
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// lifecycleAPI is everything the HTTP handlers need from the lifecycle
// service.
type lifecycleAPI interface {
	handlers.ReportService
	handlers.ConfirmationService
	handlers.RuleDescriber
}

var _ lifecycleAPI = (*lifecycle.Service)(nil)

// registerHandlers adds the /v1 route groups to srv.
func registerHandlers(srv *core.Server, svc lifecycleAPI, logger *slog.Logger, opts ...handlers.ReportHandlerOption) {
	reportHandler := handlers.NewReportHandler(svc, srv.Validator, logger, opts...)
	confirmHandler := handlers.NewConfirmationHandler(svc, srv.Validator, logger)
	cityHandler := handlers.NewCityHandler(svc, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { r.Route("/reports", reportHandler.RegisterRoutes) },
		func(r chi.Router) { r.Route("/cities", cityHandler.RegisterRoutes) },
		confirmHandler.RegisterRoutes,
	)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
