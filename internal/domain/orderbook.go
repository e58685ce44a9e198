package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// BookKey identifies one venue's book for one asset pair. Ingestion is
// last-write-wins per key.
type BookKey struct {
	Exchange  string
	AssetPair string
}

// OrderBook is the canonical bid/ask ladder for one venue and asset pair.
// Bids are sorted descending by price, asks ascending. Books are immutable
// once built; every mutation produces a new book.
type OrderBook struct {
	Exchange  string        `json:"exchange"`
	AssetPair AssetPair     `json:"assetPair"`
	Bids      []VolumePrice `json:"bids"`
	Asks      []VolumePrice `json:"asks"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewOrderBook validates the inputs, drops unusable levels (zero price or
// zero volume), normalises volumes to absolute values, and sorts both sides.
func NewOrderBook(exchange string, pair AssetPair, bids, asks []VolumePrice, ts time.Time) (*OrderBook, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, ErrEmptyExchange
	}
	if pair.IsEmpty() {
		return nil, fmt.Errorf("order book %s: %w", exchange, ErrEmptyAsset)
	}
	if bids == nil || asks == nil {
		return nil, fmt.Errorf("order book %s %s: %w", exchange, pair.Name(), ErrNilLevels)
	}

	ob := &OrderBook{
		Exchange:  exchange,
		AssetPair: pair,
		Bids:      sanitizeLevels(bids),
		Asks:      sanitizeLevels(asks),
		Timestamp: ts,
	}
	sort.Slice(ob.Bids, func(i, j int) bool { return ob.Bids[i].Price.GreaterThan(ob.Bids[j].Price) })
	sort.Slice(ob.Asks, func(i, j int) bool { return ob.Asks[i].Price.LessThan(ob.Asks[j].Price) })
	return ob, nil
}

// sanitizeLevels drops levels with non-positive price or zero volume and
// normalises volumes to absolute values. A zero price would make Reciprocal
// undefined, so such levels never enter a book.
func sanitizeLevels(levels []VolumePrice) []VolumePrice {
	out := make([]VolumePrice, 0, len(levels))
	for _, l := range levels {
		if !l.Price.IsPositive() || l.Volume.IsZero() {
			continue
		}
		out = append(out, NewVolumePrice(l.Price, l.Volume))
	}
	return out
}

// Key returns the (exchange, asset pair) identity of the book.
func (ob *OrderBook) Key() BookKey {
	return BookKey{Exchange: ob.Exchange, AssetPair: ob.AssetPair.Name()}
}

// BestBid returns the highest bid, if any.
func (ob *OrderBook) BestBid() (VolumePrice, bool) {
	if len(ob.Bids) == 0 {
		return VolumePrice{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (ob *OrderBook) BestAsk() (VolumePrice, bool) {
	if len(ob.Asks) == 0 {
		return VolumePrice{}, false
	}
	return ob.Asks[0], true
}

// Reverse produces the same economic ladder quoted in the inverted pair:
// new bids are the reciprocals of the old asks and vice versa, re-sorted.
func (ob *OrderBook) Reverse() *OrderBook {
	bids := make([]VolumePrice, 0, len(ob.Asks))
	for _, l := range ob.Asks {
		bids = append(bids, l.Reciprocal())
	}
	asks := make([]VolumePrice, 0, len(ob.Bids))
	for _, l := range ob.Bids {
		asks = append(asks, l.Reciprocal())
	}

	rev := &OrderBook{
		Exchange:  ob.Exchange,
		AssetPair: ob.AssetPair.Invert(),
		Bids:      bids,
		Asks:      asks,
		Timestamp: ob.Timestamp,
	}
	sort.Slice(rev.Bids, func(i, j int) bool { return rev.Bids[i].Price.GreaterThan(rev.Bids[j].Price) })
	sort.Slice(rev.Asks, func(i, j int) bool { return rev.Asks[i].Price.LessThan(rev.Asks[j].Price) })
	return rev
}

// Descriptor returns the "exchange-BASE/QUOTE" label used in conversion
// paths.
func (ob *OrderBook) Descriptor() string {
	return ob.Exchange + "-" + ob.AssetPair.Name()
}
