package domain

import (
	"fmt"
	"strings"
)

// AssetPair identifies a (base, quote) symbol pair such as BTC/USD together
// with the price accuracies for the straight and inverted quotation.
// It is a value type; instances are created once and never mutated.
type AssetPair struct {
	Base             string `json:"base"`
	Quote            string `json:"quote"`
	Accuracy         int    `json:"accuracy"`
	InvertedAccuracy int    `json:"invertedAccuracy"`
}

// NewAssetPair validates the symbols and returns the pair.
func NewAssetPair(base, quote string, accuracy, invertedAccuracy int) (AssetPair, error) {
	if strings.TrimSpace(base) == "" || strings.TrimSpace(quote) == "" {
		return AssetPair{}, fmt.Errorf("asset pair %q/%q: %w", base, quote, ErrEmptyAsset)
	}
	return AssetPair{Base: base, Quote: quote, Accuracy: accuracy, InvertedAccuracy: invertedAccuracy}, nil
}

// Name returns the canonical "BASE/QUOTE" representation.
func (p AssetPair) Name() string { return p.Base + "/" + p.Quote }

// IsEmpty reports whether either symbol is missing.
func (p AssetPair) IsEmpty() bool { return p.Base == "" || p.Quote == "" }

// Invert swaps base and quote along with the two accuracy fields.
func (p AssetPair) Invert() AssetPair {
	return AssetPair{
		Base:             p.Quote,
		Quote:            p.Base,
		Accuracy:         p.InvertedAccuracy,
		InvertedAccuracy: p.Accuracy,
	}
}

// Equal compares base and quote case-insensitively.
func (p AssetPair) Equal(other AssetPair) bool {
	return strings.EqualFold(p.Base, other.Base) && strings.EqualFold(p.Quote, other.Quote)
}

// IsInverted reports whether other quotes the same assets in the opposite
// direction.
func (p AssetPair) IsInverted(other AssetPair) bool {
	return strings.EqualFold(p.Base, other.Quote) && strings.EqualFold(p.Quote, other.Base)
}

// EqualOrInverted reports whether other quotes the same two assets in either
// direction.
func (p AssetPair) EqualOrInverted(other AssetPair) bool {
	return p.Equal(other) || p.IsInverted(other)
}

// ContainsAsset reports whether symbol is the base or quote of the pair.
func (p AssetPair) ContainsAsset(symbol string) bool {
	return strings.EqualFold(p.Base, symbol) || strings.EqualFold(p.Quote, symbol)
}

// HasCommonAsset reports whether the two pairs share at least one asset.
func (p AssetPair) HasCommonAsset(other AssetPair) bool {
	return p.ContainsAsset(other.Base) || p.ContainsAsset(other.Quote)
}

// OtherAsset returns the counterpart of symbol within the pair. The second
// return value is false when symbol is not part of the pair.
func (p AssetPair) OtherAsset(symbol string) (string, bool) {
	switch {
	case strings.EqualFold(p.Base, symbol):
		return p.Quote, true
	case strings.EqualFold(p.Quote, symbol):
		return p.Base, true
	default:
		return "", false
	}
}
