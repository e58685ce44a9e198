package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the runtime-tunable detection parameters. Any change flags a
// full state restart: cross rates, active opportunities and history are all
// rebuilt from scratch on the next cycle.
type Settings struct {
	// ExpirationTimeSeconds is the staleness window: books and cross rates
	// older than this are evicted at the start of each cycle.
	ExpirationTimeSeconds int `json:"expirationTimeSeconds"`
	// HistoryMaxSizePerPair caps ended opportunities retained per asset
	// pair; overflow is pruned lowest PnL first.
	HistoryMaxSizePerPair int             `json:"historyMaxSizePerPair"`
	MinimumPnL            decimal.Decimal `json:"minimumPnL"`
	MinimumVolume         decimal.Decimal `json:"minimumVolume"`
	// MinSpread must be <= 0; a crossed market has a negative spread.
	MinSpread          decimal.Decimal `json:"minSpread"`
	BaseAssets         []string        `json:"baseAssets"`
	IntermediateAssets []string        `json:"intermediateAssets"`
	QuoteAsset         string          `json:"quoteAsset"`
	ExchangeAllowList  []string        `json:"exchangeAllowList"`
}

// DefaultSettings mirror the shipped configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		ExpirationTimeSeconds: 10,
		HistoryMaxSizePerPair: 20,
		MinimumPnL:            decimal.Zero,
		MinimumVolume:         decimal.Zero,
		MinSpread:             decimal.Zero,
		BaseAssets:            []string{"BTC"},
		IntermediateAssets:    []string{"EUR", "USD"},
		QuoteAsset:            "USD",
	}
}

// ExpirationTime returns the staleness window as a duration. Zero disables
// eviction.
func (s Settings) ExpirationTime() time.Duration {
	return time.Duration(s.ExpirationTimeSeconds) * time.Second
}

// AllowsExchange reports whether the exchange passes the allow list. An
// empty list allows everything.
func (s Settings) AllowsExchange(exchange string) bool {
	if len(s.ExchangeAllowList) == 0 {
		return true
	}
	for _, e := range s.ExchangeAllowList {
		if strings.EqualFold(e, exchange) {
			return true
		}
	}
	return false
}

// Validate rejects parameter combinations the detector cannot run with.
func (s Settings) Validate() error {
	var errs []string
	if s.ExpirationTimeSeconds < 0 {
		errs = append(errs, "expirationTimeSeconds must be >= 0")
	}
	if s.HistoryMaxSizePerPair < 1 {
		errs = append(errs, "historyMaxSizePerPair must be >= 1")
	}
	if s.MinSpread.IsPositive() {
		errs = append(errs, "minSpread must be <= 0")
	}
	if len(s.BaseAssets) == 0 {
		errs = append(errs, "baseAssets must not be empty")
	}
	if strings.TrimSpace(s.QuoteAsset) == "" {
		errs = append(errs, "quoteAsset must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings: %s", strings.Join(errs, "; "))
	}
	return nil
}
