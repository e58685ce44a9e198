package domain

import "github.com/shopspring/decimal"

// VolumePrice is one level of a price ladder. Volume is always stored as its
// absolute value; feeds report sell-side volumes negative.
type VolumePrice struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// NewVolumePrice builds a level, normalising the volume to its absolute value.
func NewVolumePrice(price, volume decimal.Decimal) VolumePrice {
	return VolumePrice{Price: price, Volume: volume.Abs()}
}

// Reciprocal re-expresses the level in the inverted pair's units: the price
// becomes 1/price and the volume is converted into the opposite asset.
// Price must be non-zero; zero-priced levels are filtered before they reach a
// ladder.
func (v VolumePrice) Reciprocal() VolumePrice {
	return VolumePrice{
		Price:  decimal.NewFromInt(1).Div(v.Price),
		Volume: v.Volume.Mul(v.Price),
	}
}
