package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Spread returns (ask - bid) / bid * 100. A negative spread means the ask
// sits below the bid, i.e. a crossed, arbitrageable market.
func Spread(bid, ask decimal.Decimal) decimal.Decimal {
	return ask.Sub(bid).Div(bid).Mul(hundred)
}

// PnL is the profit from matching a bid against a lower ask at volume.
func PnL(bid, ask, volume decimal.Decimal) decimal.Decimal {
	return bid.Sub(ask).Mul(volume)
}

// ArbitrageKey identifies an opportunity across cycles: the ordered pair of
// conversion paths of the bid-side and ask-side books.
type ArbitrageKey struct {
	BidPath string
	AskPath string
}

// Arbitrage is a tracked opportunity: a level on one book bidding above a
// level asked on a different book quoting the same pair. BidBook/AskBook may
// be real (1-leg) or synthetic. EndedAt is zero while the opportunity is
// still being re-detected.
type Arbitrage struct {
	ID        string          `json:"id"`
	AssetPair AssetPair       `json:"assetPair"`
	BidBook   *SynthOrderBook `json:"-"`
	AskBook   *SynthOrderBook `json:"-"`
	Bid       VolumePrice     `json:"bid"`
	Ask       VolumePrice     `json:"ask"`
	Spread    decimal.Decimal `json:"spread"`
	Volume    decimal.Decimal `json:"volume"`
	PnL       decimal.Decimal `json:"pnl"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt,omitzero"`
}

// Key returns the cross-cycle identity of the opportunity.
func (a *Arbitrage) Key() ArbitrageKey {
	return ArbitrageKey{BidPath: a.BidBook.ConversionPath, AskPath: a.AskBook.ConversionPath}
}

// Path is the human-readable "(bid chain) > (ask chain)" label.
func (a *Arbitrage) Path() string {
	return fmt.Sprintf("(%s) > (%s)", a.BidBook.ConversionPath, a.AskBook.ConversionPath)
}

// Active reports whether the opportunity has not yet ended.
func (a *Arbitrage) Active() bool { return a.EndedAt.IsZero() }
