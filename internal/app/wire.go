package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crossarb/crossarb/internal/arbitrage"
	s3blob "github.com/crossarb/crossarb/internal/blob/s3"
	"github.com/crossarb/crossarb/internal/cache/redis"
	"github.com/crossarb/crossarb/internal/config"
	"github.com/crossarb/crossarb/internal/domain"
	"github.com/crossarb/crossarb/internal/ingest"
	"github.com/crossarb/crossarb/internal/store/postgres"
)

// Dependencies bundles everything the running application needs. Optional
// backends (postgres, redis, s3) stay nil when their config section is
// disabled; dependent features degrade gracefully.
type Dependencies struct {
	Service *arbitrage.Service
	Parser  *ingest.Parser

	Bus           domain.EventBus
	MatrixStore   domain.MatrixStore
	SettingsStore domain.SettingsStore
	Archiver      domain.HistoryArchiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MatrixStore = postgres.NewMatrixStore(pool)
		deps.SettingsStore = postgres.NewSettingsStore(pool)
	}

	if cfg.Redis.Enabled {
		bus, err := redis.NewEventBus(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = bus.Close() })

		deps.Bus = bus
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client)
	}

	// Persisted settings take priority over the config file so that updates
	// made through the API survive restarts.
	settings := cfg.DetectorSettings()
	if deps.SettingsStore != nil {
		stored, err := deps.SettingsStore.Get(ctx)
		switch {
		case err == nil:
			settings = stored
			logger.InfoContext(ctx, "loaded persisted settings")
		case errors.Is(err, domain.ErrNotFound):
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: load settings: %w", err)
		}
	}

	deps.Service = arbitrage.New(arbitrage.Config{
		Settings: settings,
		Bus:      deps.Bus,
		Logger:   logger,
	})
	deps.Parser = ingest.NewParser(cfg.KnownPairs(), cfg.Assets.Known, logger)

	return deps, cleanup, nil
}
