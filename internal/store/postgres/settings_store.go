package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossarb/crossarb/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL. The
// settings document is a singleton row.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get returns the persisted settings, or domain.ErrNotFound when none have
// been stored yet.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM detector_settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("postgres: get settings: %w", err)
	}

	var set domain.Settings
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.Settings{}, fmt.Errorf("postgres: unmarshal settings: %w", err)
	}
	return set, nil
}

// Upsert stores the settings document.
func (s *SettingsStore) Upsert(ctx context.Context, set domain.Settings) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("postgres: marshal settings: %w", err)
	}

	const query = `
		INSERT INTO detector_settings (id, data, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, data); err != nil {
		return fmt.Errorf("postgres: upsert settings: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SettingsStore = (*SettingsStore)(nil)
