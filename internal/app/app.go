// Package app provides the top-level application lifecycle for the cross-rate
// arbitrage detector. It wires together stores, the event bus, venue feeds,
// the detection worker, and the HTTP API, and runs them until cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crossarb/crossarb/internal/config"
	"github.com/crossarb/crossarb/internal/feed"
	"github.com/crossarb/crossarb/internal/server"
	"github.com/crossarb/crossarb/internal/server/handler"
	"github.com/crossarb/crossarb/internal/snapshot"
	"github.com/crossarb/crossarb/internal/worker"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the feeds, workers, and HTTP server, and
// blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("feeds", len(a.cfg.Feeds)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// Detection cycle.
	detectWorker := worker.NewPeriodic("detector", a.cfg.Detector.Interval.Duration, deps.Service.Execute, a.logger)
	g.Go(func() error {
		return detectWorker.Run(ctx)
	})

	// Persistence runs on its own slower timer; skipped entirely when no
	// sink is configured.
	if deps.MatrixStore != nil || deps.Archiver != nil {
		snap := snapshot.New(deps.Service, deps.MatrixStore, deps.Archiver, a.logger)
		snapWorker := worker.NewPeriodic("snapshotter", a.cfg.Snapshot.Interval.Duration, snap.Run, a.logger)
		g.Go(func() error {
			return snapWorker.Run(ctx)
		})
	}

	// Venue feeds.
	for _, spec := range a.cfg.Feeds {
		f := feed.NewWSFeed(spec.Name, spec.URL, deps.Parser, deps.Service.Process, a.logger)
		g.Go(func() error {
			return f.Run(ctx)
		})
	}

	// HTTP API.
	if a.cfg.Server.Enabled {
		matrixHandler := handler.NewMatrixHandler(deps.Service, a.logger)
		if deps.MatrixStore != nil {
			matrixHandler = matrixHandler.WithMatrixStore(deps.MatrixStore)
		}
		settingsHandler := handler.NewSettingsHandler(deps.Service, a.logger)
		if deps.SettingsStore != nil {
			settingsHandler = settingsHandler.WithSettingsStore(deps.SettingsStore)
		}

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		}, server.Handlers{
			Health:    handler.NewHealthHandler(a.logger),
			Arbitrage: handler.NewArbitrageHandler(deps.Service, a.logger),
			Books:     handler.NewBookHandler(deps.Service, a.logger),
			Matrix:    matrixHandler,
			Settings:  settingsHandler,
		}, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
