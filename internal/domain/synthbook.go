package domain

import (
	"fmt"
	"time"
)

// SynthOrderBook is an order book for a pair that is not quoted directly
// anywhere, derived by chaining one to three real books through shared
// intermediate assets. ConversionPath records which legs, in which quoting
// direction, produced it. Originals keeps the pre-resolution source books for
// traceability.
type SynthOrderBook struct {
	OrderBook
	ConversionPath string       `json:"conversionPath"`
	Originals      []*OrderBook `json:"originalOrderBooks"`
}

// NewSynthOrderBook wraps a derived book with its provenance. The timestamp
// of the result is the minimum across the legs: a synthetic book is only as
// fresh as its stalest input.
func NewSynthOrderBook(book *OrderBook, path string, originals []*OrderBook) (*SynthOrderBook, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if len(originals) == 0 || len(originals) > 3 {
		return nil, fmt.Errorf("synthetic book %s: needs 1-3 legs, got %d", path, len(originals))
	}

	ts := originals[0].Timestamp
	for _, o := range originals[1:] {
		if o.Timestamp.Before(ts) {
			ts = o.Timestamp
		}
	}
	book.Timestamp = ts

	return &SynthOrderBook{
		OrderBook:      *book,
		ConversionPath: path,
		Originals:      originals,
	}, nil
}

// Key de-duplicates synthetic books: the same chain discovered through a
// different search order must not be rebuilt.
func (s *SynthOrderBook) Key() string {
	return s.ConversionPath + "|" + s.AssetPair.Name()
}

// Age returns how stale the book is relative to now.
func (s *SynthOrderBook) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
