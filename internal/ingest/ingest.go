// Package ingest validates raw venue order book payloads and resolves their
// asset pairs before they reach the detector.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// RawLevel is one inbound price level. Volume may arrive signed; it is
// normalised to its absolute value downstream.
type RawLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// RawOrderBook is the wire shape of one venue update.
type RawOrderBook struct {
	Source    string     `json:"source"`
	AssetPair string     `json:"asset"`
	Bids      []RawLevel `json:"bids"`
	Asks      []RawLevel `json:"asks"`
	Timestamp time.Time  `json:"timestamp"`
}

// Parser resolves raw pair strings against a dictionary of known pairs and,
// failing that, infers them from a known-assets list.
type Parser struct {
	pairs  map[string]domain.AssetPair
	assets []string
	logger *slog.Logger
}

// NewParser builds a Parser. pairs is the exact-lookup dictionary; assets is
// the inference scan list, in priority order.
func NewParser(pairs []domain.AssetPair, assets []string, logger *slog.Logger) *Parser {
	dict := make(map[string]domain.AssetPair, len(pairs))
	for _, p := range pairs {
		dict[normalize(p.Base+p.Quote)] = p
	}
	return &Parser{
		pairs:  dict,
		assets: assets,
		logger: logger.With(slog.String("component", "ingest")),
	}
}

// Parse validates one raw update and returns the canonical book. Levels with
// non-positive price or zero volume never reach the book; a bad update only
// ever drops itself.
func (p *Parser) Parse(raw RawOrderBook) (*domain.OrderBook, error) {
	if strings.TrimSpace(raw.Source) == "" {
		return nil, domain.ErrEmptyExchange
	}
	pair, err := p.resolvePair(raw.AssetPair)
	if err != nil {
		return nil, err
	}
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return domain.NewOrderBook(raw.Source, pair, levels(raw.Bids), levels(raw.Asks), ts)
}

func levels(raw []RawLevel) []domain.VolumePrice {
	out := make([]domain.VolumePrice, 0, len(raw))
	for _, l := range raw {
		out = append(out, domain.VolumePrice{Price: l.Price, Volume: l.Volume})
	}
	return out
}

// resolvePair tries the exact dictionary first, then infers from the known
// assets: the first known symbol found as a substring wins, the remainder is
// the other asset, and the matched symbol is the base only when the string
// starts with it. First-match-in-scan-order tie-breaking for overlapping
// symbols is long-standing behavior and kept as is.
func (p *Parser) resolvePair(raw string) (domain.AssetPair, error) {
	norm := normalize(raw)
	if norm == "" {
		return domain.AssetPair{}, fmt.Errorf("pair %q: %w", raw, domain.ErrEmptyAsset)
	}
	if pair, ok := p.pairs[norm]; ok {
		return pair, nil
	}

	for _, asset := range p.assets {
		a := normalize(asset)
		idx := strings.Index(norm, a)
		if idx < 0 {
			continue
		}
		remainder := norm[:idx] + norm[idx+len(a):]
		if remainder == "" {
			continue
		}
		if idx == 0 {
			return domain.NewAssetPair(a, remainder, 8, 8)
		}
		return domain.NewAssetPair(remainder, a, 8, 8)
	}
	return domain.AssetPair{}, fmt.Errorf("pair %q: %w", raw, domain.ErrUnknownAssetPair)
}

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "-", "_", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}
