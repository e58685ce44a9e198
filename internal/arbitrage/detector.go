// Package arbitrage finds and tracks crossings between order books (real or
// synthetic) quoting the same asset pair. Detection is pure and side-effect
// free; the Service in this package owns the per-cycle lifecycle state.
package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// MatchVolume greedily matches one book's full bid ladder against another
// book's full ask ladder. Each iteration recomputes the true best bid and
// best ask rather than trusting input ordering, matches the smaller volume,
// and discards levels that can no longer clear: consumed levels, bids priced
// at or below the matched ask, and asks priced at or above the matched bid.
// ok is false when nothing crossed.
func MatchVolume(bids, asks []domain.VolumePrice) (volume, pnl decimal.Decimal, ok bool) {
	b := append([]domain.VolumePrice(nil), bids...)
	a := append([]domain.VolumePrice(nil), asks...)

	for len(b) > 0 && len(a) > 0 {
		bi := indexMaxPrice(b)
		ai := indexMinPrice(a)
		bid, ask := b[bi], a[ai]
		if !bid.Price.GreaterThan(ask.Price) {
			break
		}

		matched := decimal.Min(bid.Volume, ask.Volume)
		volume = volume.Add(matched)
		pnl = pnl.Add(bid.Price.Sub(ask.Price).Mul(matched))

		b[bi].Volume = bid.Volume.Sub(matched)
		a[ai].Volume = ask.Volume.Sub(matched)
		b = keepLevels(b, func(l domain.VolumePrice) bool {
			return l.Volume.IsPositive() && l.Price.GreaterThan(ask.Price)
		})
		a = keepLevels(a, func(l domain.VolumePrice) bool {
			return l.Volume.IsPositive() && l.Price.LessThan(bid.Price)
		})
	}

	return volume, pnl, volume.IsPositive()
}

func indexMaxPrice(levels []domain.VolumePrice) int {
	best := 0
	for i := 1; i < len(levels); i++ {
		if levels[i].Price.GreaterThan(levels[best].Price) {
			best = i
		}
	}
	return best
}

func indexMinPrice(levels []domain.VolumePrice) int {
	best := 0
	for i := 1; i < len(levels); i++ {
		if levels[i].Price.LessThan(levels[best].Price) {
			best = i
		}
	}
	return best
}

func keepLevels(levels []domain.VolumePrice, keep func(domain.VolumePrice) bool) []domain.VolumePrice {
	out := levels[:0]
	for _, l := range levels {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// candidate is one crossing (bid level, ask level) drawn from two different
// books during enumeration.
type candidate struct {
	bidBook *domain.SynthOrderBook
	askBook *domain.SynthOrderBook
	bid     domain.VolumePrice
	ask     domain.VolumePrice
	est     decimal.Decimal // single-level pnl, used only to rank candidates
}

// Detect walks every asset pair present among the given cross rates and
// returns at most one opportunity per ordered (bid path, ask path) key: the
// pooled ladders are fast-reject checked, all crossing level pairs from
// different books are enumerated, the highest single-level-PnL instance per
// key is kept, and its full matchable volume and profit are computed by
// MatchVolume. Spread, PnL and volume minimums from the settings are applied.
func Detect(synths []*domain.SynthOrderBook, set domain.Settings) []*domain.Arbitrage {
	byPair := make(map[string][]*domain.SynthOrderBook)
	for _, s := range synths {
		name := s.AssetPair.Name()
		byPair[name] = append(byPair[name], s)
	}

	var out []*domain.Arbitrage
	for _, group := range byPair {
		out = append(out, detectPair(group, set)...)
	}
	return out
}

func detectPair(group []*domain.SynthOrderBook, set domain.Settings) []*domain.Arbitrage {
	if len(group) < 2 || !pooledCrossing(group) {
		return nil
	}

	best := make(map[domain.ArbitrageKey]candidate)
	for _, bidBook := range group {
		for _, askBook := range group {
			if bidBook.ConversionPath == askBook.ConversionPath {
				continue
			}
			collectCandidates(bidBook, askBook, set, best)
		}
	}

	var out []*domain.Arbitrage
	for _, c := range best {
		volume, pnl, ok := MatchVolume(c.bidBook.Bids, c.askBook.Asks)
		if !ok {
			continue
		}
		if set.MinimumVolume.IsPositive() && volume.LessThan(set.MinimumVolume) {
			continue
		}
		if set.MinimumPnL.IsPositive() && pnl.LessThan(set.MinimumPnL) {
			continue
		}
		out = append(out, &domain.Arbitrage{
			AssetPair: c.bidBook.AssetPair,
			BidBook:   c.bidBook,
			AskBook:   c.askBook,
			Bid:       c.bid,
			Ask:       c.ask,
			Spread:    domain.Spread(c.bid.Price, c.ask.Price),
			Volume:    volume,
			PnL:       pnl,
		})
	}
	return out
}

// pooledCrossing is the cheap rejection test: the maximum bid across all
// books must exceed the minimum ask before any pairwise enumeration is worth
// doing.
func pooledCrossing(group []*domain.SynthOrderBook) bool {
	var maxBid, minAsk decimal.Decimal
	haveBid, haveAsk := false, false
	for _, b := range group {
		if l, ok := b.BestBid(); ok && (!haveBid || l.Price.GreaterThan(maxBid)) {
			maxBid, haveBid = l.Price, true
		}
		if l, ok := b.BestAsk(); ok && (!haveAsk || l.Price.LessThan(minAsk)) {
			minAsk, haveAsk = l.Price, true
		}
	}
	return haveBid && haveAsk && maxBid.GreaterThan(minAsk)
}

// collectCandidates enumerates crossing (bid, ask) level pairs between two
// distinct books and keeps the best instance per key. Asks are ascending, so
// the inner loop stops at the first non-crossing ask.
func collectCandidates(bidBook, askBook *domain.SynthOrderBook, set domain.Settings, best map[domain.ArbitrageKey]candidate) {
	key := domain.ArbitrageKey{BidPath: bidBook.ConversionPath, AskPath: askBook.ConversionPath}
	for _, bid := range bidBook.Bids {
		for _, ask := range askBook.Asks {
			if !bid.Price.GreaterThan(ask.Price) {
				break
			}
			if domain.Spread(bid.Price, ask.Price).GreaterThan(set.MinSpread) {
				continue
			}
			est := domain.PnL(bid.Price, ask.Price, decimal.Min(bid.Volume, ask.Volume))
			if cur, ok := best[key]; ok && !est.GreaterThan(cur.est) {
				continue
			}
			best[key] = candidate{bidBook: bidBook, askBook: askBook, bid: bid, ask: ask, est: est}
		}
	}
}
