// Package snapshot persists periodic state snapshots on a timer that is
// independent of, and slower than, the detection cycle. No detection work
// depends on it; a persistence failure only costs the snapshot.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crossarb/crossarb/internal/domain"
)

// Source is the read-only view of the detector state the snapshotter needs.
type Source interface {
	ListOrderBooks(exchange, pair string) []domain.OrderBook
	SpreadMatrix(pair string) (*domain.Matrix, error)
	ListArbitrageHistory(since time.Time, limit int) []domain.Arbitrage
}

// Snapshotter writes spread/volume matrices to the matrix store and newly
// ended opportunities to the history archiver. Both sinks are optional.
type Snapshotter struct {
	source   Source
	matrices domain.MatrixStore
	archiver domain.HistoryArchiver
	logger   *slog.Logger

	lastArchived time.Time
}

// New creates a Snapshotter. Either sink may be nil, in which case that
// snapshot kind is skipped.
func New(source Source, matrices domain.MatrixStore, archiver domain.HistoryArchiver, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{
		source:       source,
		matrices:     matrices,
		archiver:     archiver,
		logger:       logger.With(slog.String("component", "snapshotter")),
		lastArchived: time.Now().UTC(),
	}
}

// Run persists one round of snapshots. It is intended to be driven by a
// periodic worker.
func (s *Snapshotter) Run(ctx context.Context) error {
	now := time.Now().UTC()

	if s.matrices != nil {
		if err := s.persistMatrices(ctx, now); err != nil {
			return err
		}
	}
	if s.archiver != nil {
		if err := s.archiveHistory(ctx, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshotter) persistMatrices(ctx context.Context, now time.Time) error {
	pairs := make(map[string]struct{})
	for _, ob := range s.source.ListOrderBooks("", "") {
		pairs[ob.AssetPair.Name()] = struct{}{}
	}

	for pair := range pairs {
		m, err := s.source.SpreadMatrix(pair)
		if err != nil {
			continue
		}
		m.Timestamp = now
		if err := s.matrices.Insert(ctx, m); err != nil {
			return fmt.Errorf("snapshot: persist matrix %s: %w", pair, err)
		}
	}
	return nil
}

func (s *Snapshotter) archiveHistory(ctx context.Context, now time.Time) error {
	ended := s.source.ListArbitrageHistory(s.lastArchived, 0)
	if len(ended) == 0 {
		return nil
	}
	if err := s.archiver.Archive(ctx, ended, now); err != nil {
		return fmt.Errorf("snapshot: archive history: %w", err)
	}
	s.lastArchived = now
	s.logger.Debug("history archived", slog.Int("entries", len(ended)))
	return nil
}
