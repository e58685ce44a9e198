// Package synth derives order books for asset pairs that are not quoted
// directly anywhere, by chaining up to three real books through shared
// intermediate assets. The functions here are pure; callers bound ladder
// sizes upstream (expiration, minimum volume) because the cross product
// itself is intentionally unbounded.
package synth

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// FromOrderBook builds the trivial one-leg chain: valid only when the source
// book's pair equals the target or is its inversion (in which case the book
// is reversed). The conversion path is the source book's descriptor.
func FromOrderBook(ob *domain.OrderBook, target domain.AssetPair) (*domain.SynthOrderBook, error) {
	var book *domain.OrderBook
	switch {
	case ob.AssetPair.Equal(target):
		cp := *ob
		book = &cp
	case ob.AssetPair.IsInverted(target):
		book = ob.Reverse()
	default:
		return nil, domain.ErrNoChain
	}
	return domain.NewSynthOrderBook(book, ob.Descriptor(), []*domain.OrderBook{ob})
}

// FromTwo builds a two-leg chain target.Base -> shared asset -> target.Quote
// from two distinct books, reversing either input as needed. It returns
// domain.ErrNoChain when no consistent left/right assignment exists.
func FromTwo(one, two *domain.OrderBook, target domain.AssetPair) (*domain.SynthOrderBook, error) {
	for _, legs := range [][2]*domain.OrderBook{{one, two}, {two, one}} {
		left := orientBase(legs[0], target.Base)
		if left == nil {
			continue
		}
		right := orientQuote(legs[1], target.Quote)
		if right == nil {
			continue
		}
		if !strings.EqualFold(left.AssetPair.Quote, right.AssetPair.Base) {
			continue
		}
		return composeTwo(left, right, legs[0], legs[1], target)
	}
	return nil, domain.ErrNoChain
}

// FromThree builds a three-leg chain target.Base -> i1 -> i2 -> target.Quote
// from three distinct books, trying every permutation and orientation.
func FromThree(one, two, three *domain.OrderBook, target domain.AssetPair) (*domain.SynthOrderBook, error) {
	books := [3]*domain.OrderBook{one, two, three}
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		left := orientBase(books[p[0]], target.Base)
		if left == nil {
			continue
		}
		middle := orientBase(books[p[1]], left.AssetPair.Quote)
		if middle == nil {
			continue
		}
		right := orientBase(books[p[2]], middle.AssetPair.Quote)
		if right == nil || !strings.EqualFold(right.AssetPair.Quote, target.Quote) {
			continue
		}
		return composeThree(left, middle, right,
			[]*domain.OrderBook{books[p[0]], books[p[1]], books[p[2]]}, target)
	}
	return nil, domain.ErrNoChain
}

// All enumerates every valid 1-, 2- and 3-leg chain terminating at target
// within the pool, de-duplicated by (conversion path, asset pair). The search
// is bounded to depth 3 by design; it is not a shortest-path search.
func All(target domain.AssetPair, pool []*domain.OrderBook) []*domain.SynthOrderBook {
	seen := make(map[string]struct{})
	var out []*domain.SynthOrderBook
	add := func(s *domain.SynthOrderBook) {
		if _, ok := seen[s.Key()]; ok {
			return
		}
		seen[s.Key()] = struct{}{}
		out = append(out, s)
	}

	for _, ob := range pool {
		if s, err := FromOrderBook(ob, target); err == nil {
			add(s)
		}
	}
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if s, err := FromTwo(pool[i], pool[j], target); err == nil {
				add(s)
			}
		}
	}
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			for k := j + 1; k < len(pool); k++ {
				if s, err := FromThree(pool[i], pool[j], pool[k], target); err == nil {
					add(s)
				}
			}
		}
	}
	return out
}

// orientBase returns the book quoted with the given base asset, reversing it
// when it is quoted the other way around, or nil when the asset is absent.
func orientBase(ob *domain.OrderBook, base string) *domain.OrderBook {
	switch {
	case strings.EqualFold(ob.AssetPair.Base, base):
		return ob
	case strings.EqualFold(ob.AssetPair.Quote, base):
		return ob.Reverse()
	default:
		return nil
	}
}

// orientQuote is the counterpart of orientBase for the quote side.
func orientQuote(ob *domain.OrderBook, quote string) *domain.OrderBook {
	switch {
	case strings.EqualFold(ob.AssetPair.Quote, quote):
		return ob
	case strings.EqualFold(ob.AssetPair.Base, quote):
		return ob.Reverse()
	default:
		return nil
	}
}

// composeTwo cross-multiplies every left level against every right level.
// The right leg's tradable amount is re-expressed in the left leg's base
// asset before taking the minimum: the two legs' volumes are denominated in
// different assets.
func composeTwo(left, right, origOne, origTwo *domain.OrderBook, target domain.AssetPair) (*domain.SynthOrderBook, error) {
	bids := crossTwo(left.Bids, right.Bids)
	asks := crossTwo(left.Asks, right.Asks)

	book, err := domain.NewOrderBook(
		left.Exchange+"-"+right.Exchange,
		target,
		bids, asks,
		time.Time{},
	)
	if err != nil {
		return nil, err
	}
	path := origOne.Descriptor() + " * " + origTwo.Descriptor()
	return domain.NewSynthOrderBook(book, path, []*domain.OrderBook{origOne, origTwo})
}

func crossTwo(left, right []domain.VolumePrice) []domain.VolumePrice {
	out := make([]domain.VolumePrice, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			out = append(out, domain.VolumePrice{
				Price:  l.Price.Mul(r.Price),
				Volume: decimal.Min(l.Volume, r.Volume.Div(l.Price)),
			})
		}
	}
	return out
}

// composeThree is the triple cross product. Each leg's volume is converted to
// the first leg's base asset via the cumulative price before taking the
// minimum.
func composeThree(left, middle, right *domain.OrderBook, originals []*domain.OrderBook, target domain.AssetPair) (*domain.SynthOrderBook, error) {
	bids := crossThree(left.Bids, middle.Bids, right.Bids)
	asks := crossThree(left.Asks, middle.Asks, right.Asks)

	book, err := domain.NewOrderBook(
		left.Exchange+"-"+middle.Exchange+"-"+right.Exchange,
		target,
		bids, asks,
		time.Time{},
	)
	if err != nil {
		return nil, err
	}
	path := originals[0].Descriptor() + " * " + originals[1].Descriptor() + " * " + originals[2].Descriptor()
	return domain.NewSynthOrderBook(book, path, originals)
}

func crossThree(left, middle, right []domain.VolumePrice) []domain.VolumePrice {
	out := make([]domain.VolumePrice, 0, len(left)*len(middle)*len(right))
	for _, l := range left {
		for _, m := range middle {
			lm := l.Price.Mul(m.Price)
			for _, r := range right {
				out = append(out, domain.VolumePrice{
					Price:  lm.Mul(r.Price),
					Volume: decimal.Min(l.Volume, m.Volume.Div(l.Price), r.Volume.Div(lm)),
				})
			}
		}
	}
	return out
}
