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

	"github.com/starford/orrery/internal/api"
	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/mcpserver"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/service"
	"github.com/starford/orrery/internal/sse"
	"github.com/starford/orrery/internal/storage"
	"github.com/starford/orrery/internal/store"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	db      *store.DB
	broker  *sse.Broker
	svc     *service.Service
	journal storage.Provider
}

func (rt *runtime) close() {
	if rt.broker != nil {
		rt.broker.Close()
	}
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close store", slog.String("error", err.Error()))
	}
}

// start applies the options, opens the event store and rebuilds the scan
// tree from it.
func start(ctx context.Context, withBroker bool, opts ...Option) (*runtime, *service.ReplayStats, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_dir", cfg.Journal.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, db: db}

	engineOpts := []scantree.Option{
		scantree.WithRules(cfg.Engine.Rules()),
		scantree.WithLogger(logger),
		scantree.WithRenames(cfg.Journal.Renames),
	}
	if withBroker {
		rt.broker = sse.NewBroker(2 * time.Second)
		engineOpts = append(engineOpts, scantree.WithNotify(service.Notifier(rt.broker)))
	}
	rt.svc = service.NewService(scantree.New(engineOpts...), db, logger)

	if cfg.Journal.Enabled() {
		files, err := storage.NewFS(cfg.Journal.Dir)
		if err != nil {
			rt.close()
			return nil, nil, fmt.Errorf("init journal dir: %w", err)
		}
		rt.journal = files
	}

	stats, err := rt.svc.Replay(ctx)
	if err != nil {
		rt.close()
		return nil, nil, fmt.Errorf("replay store: %w", err)
	}

	// Catch up with whatever the game wrote since the last run.
	if rt.journal != nil {
		if err := journal.Sync(rt.journal, db, logger, rt.svc.HandleJournal); err != nil {
			logger.Warn("initial journal sync failed", slog.String("error", err.Error()))
		}
	}

	return rt, stats, nil
}

// Replay rebuilds the scan tree from the event store, reads any unread
// journal lines and returns the replay counters.
func Replay(ctx context.Context, opts ...Option) (*service.ReplayStats, error) {
	rt, stats, err := start(ctx, false, opts...)
	if err != nil {
		return nil, err
	}
	defer rt.close()
	return stats, nil
}

// ServeMCP rebuilds the scan tree and serves it over MCP on stdin/stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	rt, _, err := start(ctx, false, opts...)
	if err != nil {
		return err
	}
	defer rt.close()
	return mcpserver.New(rt.svc).ServeStdio()
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, stats, err := start(ctx, true, opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger, broker := rt.cfg, rt.logger, rt.broker

	logger.Info("Scan tree rebuilt",
		slog.Int("events", stats.Events),
		slog.Int("attached", stats.Attached),
		slog.Int("deferred", stats.Deferred),
		slog.Int("systems", len(rt.svc.Systems(ctx))))

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Tail the journal directory while the game is running.
	if rt.journal != nil && cfg.Journal.Watch {
		g.Go(func() error {
			if err := journal.Watch(gCtx, rt.journal, rt.db, cfg.Journal.Dir, logger, rt.svc.HandleJournal); err != nil {
				logger.Error("journal watcher stopped", slog.String("error", err.Error()))
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
