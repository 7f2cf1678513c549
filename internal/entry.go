// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notegraph/internal/api"
	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/mcpserver"
	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/sse"
)

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.initLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// The broker reports graph counters from the service it notifies.
	var svc *noteservice.Service
	broker := sse.NewBroker(app.config.Events.GraphThrottle,
		sse.WithLogger(logger),
		sse.WithGraphStats(func(ctx context.Context) (linkgraph.Stats, error) {
			return svc.GraphStats(ctx)
		}),
	)
	defer broker.Close()

	env, err := app.open(noteservice.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer env.Close()
	svc = env.Service

	cfg := env.Config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("watch", cfg.Vault.Watch))

	// Run initial sync.
	if err := svc.SyncVault(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, env.Vault, logger)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := env.DB.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-import files edited outside the application.
	if cfg.Vault.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, env.DB, env.Vault, svc, env.Vault.Root(), logger, broker.PublishNoteEvent); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// ServeMCP syncs the vault and serves the MCP tools on stdin/stdout until
// the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	env, err := Open(opts...)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Service.SyncVault(ctx); err != nil {
		env.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	env.Logger.Info("MCP server starting", slog.String("vault_path", env.Vault.Root()))
	return mcpserver.New(env.Service, env.Vault, env.Logger).ServeStdio()
}
