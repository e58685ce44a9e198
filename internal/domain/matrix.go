package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatrixCell is one entry of the cross-venue spread grid: venue i's bid
// matched against venue j's ask. A nil cell means one of the sides is empty.
type MatrixCell struct {
	Spread decimal.Decimal `json:"spread"`
	Volume decimal.Decimal `json:"volume"`
}

// Matrix is the square spread grid for one asset pair across every venue
// currently quoting it. Cells[i][j] holds the spread of Exchanges[i]'s best
// bid against Exchanges[j]'s best ask.
type Matrix struct {
	AssetPair string            `json:"assetPair"`
	Exchanges []string          `json:"exchanges"`
	Bids      []*VolumePrice    `json:"bids"`
	Asks      []*VolumePrice    `json:"asks"`
	Cells     [][]*MatrixCell   `json:"cells"`
	Timestamp time.Time         `json:"timestamp"`
}

// MinSpread returns the most negative (deepest crossed) spread in the grid,
// ignoring the diagonal. The second return value is false when the grid has
// no off-diagonal cell.
func (m *Matrix) MinSpread() (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for i, row := range m.Cells {
		for j, c := range row {
			if i == j || c == nil {
				continue
			}
			if !found || c.Spread.LessThan(best) {
				best = c.Spread
				found = true
			}
		}
	}
	return best, found
}
