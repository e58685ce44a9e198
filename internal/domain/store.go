package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MatrixQuery filters persisted matrix snapshots.
type MatrixQuery struct {
	AssetPair string
	From      time.Time
	To        time.Time
	// MaxSpread keeps only snapshots whose deepest spread is at or below
	// this value. Nil disables the filter.
	MaxSpread *decimal.Decimal
	// Exchanges keeps only snapshots covering all of the given venues.
	// Empty disables the filter.
	Exchanges []string
	Limit     int
}

// MatrixStore persists periodic spread/volume matrix snapshots keyed by
// (asset pair, timestamp).
type MatrixStore interface {
	Insert(ctx context.Context, m *Matrix) error
	List(ctx context.Context, q MatrixQuery) ([]*Matrix, error)
}

// SettingsStore persists detection settings across restarts.
type SettingsStore interface {
	Get(ctx context.Context) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
}

// HistoryArchiver writes batches of ended opportunities to cold storage.
type HistoryArchiver interface {
	Archive(ctx context.Context, entries []Arbitrage, ts time.Time) error
}

// EventBus publishes raw payloads to named channels for external consumers.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
