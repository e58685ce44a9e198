package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// MatrixStore implements domain.MatrixStore using PostgreSQL. Snapshots are
// keyed by (asset pair, timestamp); the full grid is stored as JSONB with
// the deepest spread denormalised into its own column for filtering.
type MatrixStore struct {
	pool *pgxpool.Pool
}

// NewMatrixStore creates a new MatrixStore backed by the given pool.
func NewMatrixStore(pool *pgxpool.Pool) *MatrixStore {
	return &MatrixStore{pool: pool}
}

// Insert stores one matrix snapshot.
func (s *MatrixStore) Insert(ctx context.Context, m *domain.Matrix) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("postgres: marshal matrix %s: %w", m.AssetPair, err)
	}

	var minSpread *decimal.Decimal
	if v, ok := m.MinSpread(); ok {
		minSpread = &v
	}

	const query = `
		INSERT INTO matrix_snapshots (asset_pair, ts, exchanges, min_spread, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_pair, ts) DO UPDATE SET
			exchanges  = EXCLUDED.exchanges,
			min_spread = EXCLUDED.min_spread,
			data       = EXCLUDED.data`

	_, err = s.pool.Exec(ctx, query, m.AssetPair, m.Timestamp, m.Exchanges, minSpread, data)
	if err != nil {
		return fmt.Errorf("postgres: insert matrix %s@%s: %w", m.AssetPair, m.Timestamp, err)
	}
	return nil
}

// List returns snapshots matching the query, newest first.
func (s *MatrixStore) List(ctx context.Context, q domain.MatrixQuery) ([]*domain.Matrix, error) {
	query := `SELECT data FROM matrix_snapshots WHERE asset_pair = $1`
	args := []any{q.AssetPair}

	if !q.From.IsZero() {
		args = append(args, q.From)
		query += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		query += fmt.Sprintf(" AND ts <= $%d", len(args))
	}
	if q.MaxSpread != nil {
		args = append(args, *q.MaxSpread)
		query += fmt.Sprintf(" AND min_spread <= $%d", len(args))
	}
	if len(q.Exchanges) > 0 {
		args = append(args, q.Exchanges)
		query += fmt.Sprintf(" AND exchanges @> $%d", len(args))
	}
	query += " ORDER BY ts DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list matrix snapshots %s: %w", q.AssetPair, err)
	}
	defer rows.Close()

	var out []*domain.Matrix
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan matrix snapshot: %w", err)
		}
		var m domain.Matrix
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal matrix snapshot: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list matrix snapshots %s: %w", q.AssetPair, err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.MatrixStore = (*MatrixStore)(nil)
