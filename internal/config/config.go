// Package config defines the top-level configuration for the cross-rate
// arbitrage detector and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CROSSARB_* environment
// variables.
type Config struct {
	Detector Detector   `toml:"detector"`
	Assets   Assets     `toml:"assets"`
	Feeds    []FeedSpec `toml:"feeds"`
	Postgres Postgres   `toml:"postgres"`
	Redis    Redis      `toml:"redis"`
	S3       S3         `toml:"s3"`
	Server   Server     `toml:"server"`
	Snapshot Snapshot   `toml:"snapshot"`
	LogLevel string     `toml:"log_level"`
}

// Detector holds the detection cycle parameters.
type Detector struct {
	Interval              duration `toml:"interval"`
	ExpirationTimeSeconds int      `toml:"expiration_time_seconds"`
	HistoryMaxSizePerPair int      `toml:"history_max_size_per_pair"`
	MinimumPnL            float64  `toml:"minimum_pnl"`
	MinimumVolume         float64  `toml:"minimum_volume"`
	// MinSpread must be <= 0; negative spreads denote crossed markets.
	MinSpread          float64  `toml:"min_spread"`
	BaseAssets         []string `toml:"base_assets"`
	IntermediateAssets []string `toml:"intermediate_assets"`
	QuoteAsset         string   `toml:"quote_asset"`
	ExchangeAllowList  []string `toml:"exchange_allow_list"`
}

// Assets configures asset pair resolution at the ingestion boundary.
type Assets struct {
	// Known is the inference scan list, in priority order.
	Known []string   `toml:"known"`
	Pairs []PairSpec `toml:"pairs"`
}

// PairSpec is one entry of the exact pair dictionary.
type PairSpec struct {
	Base             string `toml:"base"`
	Quote            string `toml:"quote"`
	Accuracy         int    `toml:"accuracy"`
	InvertedAccuracy int    `toml:"inverted_accuracy"`
}

// FeedSpec is one venue websocket endpoint.
type FeedSpec struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Postgres holds PostgreSQL connection parameters.
type Postgres struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Redis holds Redis connection parameters for event publishing.
type Redis struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3 holds object storage parameters for history archives.
type S3 struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Server holds HTTP server parameters.
type Server struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Snapshot holds the persistence timer parameters. Persistence runs on its
// own timer, slower than and independent of the detection cycle.
type Snapshot struct {
	Interval duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "2s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Detector: Detector{
			Interval:              duration{2 * time.Second},
			ExpirationTimeSeconds: 10,
			HistoryMaxSizePerPair: 20,
			MinimumPnL:            0,
			MinimumVolume:         0,
			MinSpread:             0,
			BaseAssets:            []string{"BTC", "ETH"},
			IntermediateAssets:    []string{"BTC", "ETH", "EUR", "USD"},
			QuoteAsset:            "USD",
		},
		Assets: Assets{
			Known: []string{"BTC", "ETH", "EUR", "USD", "CHF", "GBP", "JPY"},
		},
		Postgres: Postgres{
			Host:          "localhost",
			Port:          5432,
			Database:      "crossarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-history",
			ForcePathStyle: true,
		},
		Server: Server{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Snapshot: Snapshot{
			Interval: duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.Detector.Interval.Duration <= 0 {
		errs = append(errs, "detector: interval must be positive")
	}
	if err := c.DetectorSettings().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	for i, f := range c.Feeds {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("feeds[%d]: name must not be empty", i))
		}
		if f.URL == "" {
			errs = append(errs, fmt.Sprintf("feeds[%d]: url must not be empty", i))
		}
	}
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Snapshot.Interval.Duration < 0 {
		errs = append(errs, "snapshot: interval must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// DetectorSettings converts the detector section into runtime settings.
func (c *Config) DetectorSettings() domain.Settings {
	return domain.Settings{
		ExpirationTimeSeconds: c.Detector.ExpirationTimeSeconds,
		HistoryMaxSizePerPair: c.Detector.HistoryMaxSizePerPair,
		MinimumPnL:            decimal.NewFromFloat(c.Detector.MinimumPnL),
		MinimumVolume:         decimal.NewFromFloat(c.Detector.MinimumVolume),
		MinSpread:             decimal.NewFromFloat(c.Detector.MinSpread),
		BaseAssets:            c.Detector.BaseAssets,
		IntermediateAssets:    c.Detector.IntermediateAssets,
		QuoteAsset:            c.Detector.QuoteAsset,
		ExchangeAllowList:     c.Detector.ExchangeAllowList,
	}
}

// KnownPairs converts the exact pair dictionary into domain pairs. Invalid
// entries are skipped; Validate reports them separately.
func (c *Config) KnownPairs() []domain.AssetPair {
	out := make([]domain.AssetPair, 0, len(c.Assets.Pairs))
	for _, p := range c.Assets.Pairs {
		pair, err := domain.NewAssetPair(p.Base, p.Quote, p.Accuracy, p.InvertedAccuracy)
		if err != nil {
			continue
		}
		out = append(out, pair)
	}
	return out
}
