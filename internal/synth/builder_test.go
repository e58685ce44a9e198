package synth

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossarb/crossarb/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lv(price, volume string) domain.VolumePrice {
	return domain.VolumePrice{Price: d(price), Volume: d(volume)}
}

func book(t *testing.T, exchange, base, quote string, bids, asks []domain.VolumePrice) *domain.OrderBook {
	t.Helper()
	pair, err := domain.NewAssetPair(base, quote, 8, 8)
	require.NoError(t, err)
	ob, err := domain.NewOrderBook(exchange, pair, bids, asks, time.Now())
	require.NoError(t, err)
	return ob
}

// assertNear compares decimals at a tolerance tighter than any quote
// accuracy; reversed legs go through reciprocal division, which is rounded.
func assertNear(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThan(d("0.00000001")),
		"want %s, got %s", want, got)
}

func TestFromOrderBook_SamePair(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	ob := book(t, "binance", "BTC", "USD",
		[]domain.VolumePrice{lv("9000", "1")},
		[]domain.VolumePrice{lv("9001", "1")},
	)

	s, err := FromOrderBook(ob, target)
	require.NoError(t, err)
	assert.Equal(t, "binance-BTC/USD", s.ConversionPath)
	require.Len(t, s.Originals, 1)
	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("9000")))
}

func TestFromOrderBook_InvertedPair(t *testing.T) {
	target, _ := domain.NewAssetPair("USD", "BTC", 8, 8)
	ob := book(t, "binance", "BTC", "USD",
		[]domain.VolumePrice{lv("8000", "2")},
		[]domain.VolumePrice{lv("10000", "4")},
	)

	s, err := FromOrderBook(ob, target)
	require.NoError(t, err)
	assert.Equal(t, "USD", s.AssetPair.Base)
	// The path names the original book, not the reversed view.
	assert.Equal(t, "binance-BTC/USD", s.ConversionPath)

	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("0.0001")))
	assert.True(t, bid.Volume.Equal(d("40000")))
}

func TestFromOrderBook_NoChain(t *testing.T) {
	target, _ := domain.NewAssetPair("ETH", "USD", 8, 8)
	ob := book(t, "binance", "BTC", "USD",
		[]domain.VolumePrice{lv("9000", "1")},
		[]domain.VolumePrice{lv("9001", "1")},
	)

	_, err := FromOrderBook(ob, target)
	assert.ErrorIs(t, err, domain.ErrNoChain)
}

func TestFromTwo_StraightChain(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	btceur := book(t, "stex", "BTC", "EUR",
		[]domain.VolumePrice{lv("8825", "10"), lv("8823", "10")},
		[]domain.VolumePrice{lv("8999.95", "10"), lv("9000", "10")},
	)
	eurusd := book(t, "fx", "EUR", "USD",
		[]domain.VolumePrice{lv("1.2203", "10"), lv("1.2201", "10")},
		[]domain.VolumePrice{lv("1.22033", "10"), lv("1.22035", "10")},
	)

	s, err := FromTwo(btceur, eurusd, target)
	require.NoError(t, err)
	assert.Equal(t, "stex-BTC/EUR * fx-EUR/USD", s.ConversionPath)
	assert.Equal(t, "stex-fx", s.Exchange)
	require.Len(t, s.Originals, 2)
	assert.Len(t, s.Bids, 4)
	assert.Len(t, s.Asks, 4)

	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("10769.1475")))
	// 10 EUR-side units cover only 10/8825 BTC.
	assert.True(t, bid.Volume.Equal(d("10").Div(d("8825"))))

	ask, ok := s.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Price.Equal(d("10982.9089835")))
}

func TestFromTwo_ReversedLegMatchesStraightChain(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	btceur := book(t, "stex", "BTC", "EUR",
		[]domain.VolumePrice{lv("8825", "10"), lv("8823", "10")},
		[]domain.VolumePrice{lv("8999.95", "10"), lv("9000", "10")},
	)
	eurusd := book(t, "fx", "EUR", "USD",
		[]domain.VolumePrice{lv("1.2203", "10"), lv("1.2201", "10")},
		[]domain.VolumePrice{lv("1.22033", "10"), lv("1.22035", "10")},
	)
	// The same economics quoted the other way around.
	usdeur := eurusd.Reverse()

	straight, err := FromTwo(btceur, eurusd, target)
	require.NoError(t, err)
	reversed, err := FromTwo(btceur, usdeur, target)
	require.NoError(t, err)

	sb, ok := straight.BestBid()
	require.True(t, ok)
	rb, ok := reversed.BestBid()
	require.True(t, ok)
	assertNear(t, sb.Price, rb.Price)

	sa, ok := straight.BestAsk()
	require.True(t, ok)
	ra, ok := reversed.BestAsk()
	require.True(t, ok)
	assertNear(t, sa.Price, ra.Price)
}

func TestFromTwo_NoSharedAsset(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	btceur := book(t, "a", "BTC", "EUR",
		[]domain.VolumePrice{lv("8825", "1")}, []domain.VolumePrice{lv("8999", "1")},
	)
	chfjpy := book(t, "b", "CHF", "JPY",
		[]domain.VolumePrice{lv("170", "1")}, []domain.VolumePrice{lv("171", "1")},
	)

	_, err := FromTwo(btceur, chfjpy, target)
	assert.ErrorIs(t, err, domain.ErrNoChain)
}

func TestFromThree(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	btceur := book(t, "a", "BTC", "EUR",
		[]domain.VolumePrice{lv("8000", "2")}, []domain.VolumePrice{lv("8100", "2")},
	)
	eurchf := book(t, "b", "EUR", "CHF",
		[]domain.VolumePrice{lv("1.1", "10000")}, []domain.VolumePrice{lv("1.11", "10000")},
	)
	chfusd := book(t, "c", "CHF", "USD",
		[]domain.VolumePrice{lv("0.9", "50000")}, []domain.VolumePrice{lv("0.91", "50000")},
	)

	s, err := FromThree(btceur, eurchf, chfusd, target)
	require.NoError(t, err)
	assert.Equal(t, "a-BTC/EUR * b-EUR/CHF * c-CHF/USD", s.ConversionPath)
	assert.Equal(t, "a-b-c", s.Exchange)
	require.Len(t, s.Originals, 3)

	bid, ok := s.BestBid()
	require.True(t, ok)
	// 8000 * 1.1 * 0.9
	assert.True(t, bid.Price.Equal(d("7920")))
	// The middle leg's 10000 CHF-side units bind: 10000/8000 BTC.
	assert.True(t, bid.Volume.Equal(d("1.25")))
}

func TestFromThree_PermutedInputs(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	btceur := book(t, "a", "BTC", "EUR",
		[]domain.VolumePrice{lv("8000", "2")}, []domain.VolumePrice{lv("8100", "2")},
	)
	eurchf := book(t, "b", "EUR", "CHF",
		[]domain.VolumePrice{lv("1.1", "10000")}, []domain.VolumePrice{lv("1.11", "10000")},
	)
	chfusd := book(t, "c", "CHF", "USD",
		[]domain.VolumePrice{lv("0.9", "50000")}, []domain.VolumePrice{lv("0.91", "50000")},
	)

	// Leg order in the input must not matter.
	s, err := FromThree(chfusd, btceur, eurchf, target)
	require.NoError(t, err)
	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("7920")))
}

func TestAll_EnumeratesAndDedupes(t *testing.T) {
	target, _ := domain.NewAssetPair("BTC", "USD", 8, 8)
	pool := []*domain.OrderBook{
		book(t, "binance", "BTC", "USD",
			[]domain.VolumePrice{lv("9000", "1")}, []domain.VolumePrice{lv("9001", "1")}),
		book(t, "kraken", "USD", "BTC",
			[]domain.VolumePrice{lv("0.000111", "900")}, []domain.VolumePrice{lv("0.000112", "900")}),
		book(t, "stex", "BTC", "EUR",
			[]domain.VolumePrice{lv("8825", "10")}, []domain.VolumePrice{lv("8999.95", "10")}),
		book(t, "fx", "EUR", "USD",
			[]domain.VolumePrice{lv("1.2203", "10")}, []domain.VolumePrice{lv("1.22033", "10")}),
	}

	synths := All(target, pool)

	paths := make(map[string]int)
	for _, s := range synths {
		paths[s.ConversionPath]++
		assert.True(t, s.AssetPair.Equal(target))
	}

	// Two direct chains and one 2-leg chain; nothing counted twice.
	assert.Equal(t, 1, paths["binance-BTC/USD"])
	assert.Equal(t, 1, paths["kraken-USD/BTC"])
	assert.Equal(t, 1, paths["stex-BTC/EUR * fx-EUR/USD"])
	for p, n := range paths {
		assert.Equal(t, 1, n, "path %s enumerated more than once", p)
	}
}
