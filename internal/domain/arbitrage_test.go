package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpread(t *testing.T) {
	// Ask below bid: crossed market, negative spread.
	assert.True(t, Spread(d("100"), d("99")).Equal(d("-1")))
	// Ask above bid: normal market, positive spread.
	assert.True(t, Spread(d("100"), d("102")).Equal(d("2")))
	assert.True(t, Spread(d("100"), d("100")).IsZero())
}

func TestPnL(t *testing.T) {
	assert.True(t, PnL(d("101"), d("100"), d("3")).Equal(d("3")))
	assert.True(t, PnL(d("100"), d("101"), d("3")).Equal(d("-3")))
}

func TestArbitrage_KeyAndPath(t *testing.T) {
	pair := mustPair(t, "BTC", "USD")
	ob, err := NewOrderBook("binance", pair, []VolumePrice{}, []VolumePrice{}, time.Now())
	require.NoError(t, err)

	bidBook, err := NewSynthOrderBook(ob, "binance-BTC/USD", []*OrderBook{ob})
	require.NoError(t, err)
	obAsk, err := NewOrderBook("kraken", pair, []VolumePrice{}, []VolumePrice{}, time.Now())
	require.NoError(t, err)
	askBook, err := NewSynthOrderBook(obAsk, "kraken-BTC/EUR * kraken-EUR/USD", []*OrderBook{obAsk})
	require.NoError(t, err)

	arb := &Arbitrage{BidBook: bidBook, AskBook: askBook}
	assert.Equal(t, ArbitrageKey{
		BidPath: "binance-BTC/USD",
		AskPath: "kraken-BTC/EUR * kraken-EUR/USD",
	}, arb.Key())
	assert.Equal(t, "(binance-BTC/USD) > (kraken-BTC/EUR * kraken-EUR/USD)", arb.Path())

	assert.True(t, arb.Active())
	arb.EndedAt = time.Now()
	assert.False(t, arb.Active())
}

func TestSynthOrderBook_TimestampIsStalestLeg(t *testing.T) {
	pair := mustPair(t, "BTC", "USD")
	now := time.Now()

	fresh, err := NewOrderBook("a", pair, []VolumePrice{}, []VolumePrice{}, now)
	require.NoError(t, err)
	stale, err := NewOrderBook("b", pair, []VolumePrice{}, []VolumePrice{}, now.Add(-5*time.Second))
	require.NoError(t, err)

	synth, err := NewSynthOrderBook(fresh, "a-BTC/USD * b-BTC/USD", []*OrderBook{fresh, stale})
	require.NoError(t, err)
	assert.Equal(t, stale.Timestamp, synth.Timestamp)
	assert.Equal(t, 5*time.Second, synth.Age(now))
}

func TestNewSynthOrderBook_Validation(t *testing.T) {
	pair := mustPair(t, "BTC", "USD")
	ob, err := NewOrderBook("a", pair, []VolumePrice{}, []VolumePrice{}, time.Now())
	require.NoError(t, err)

	_, err = NewSynthOrderBook(ob, "", []*OrderBook{ob})
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = NewSynthOrderBook(ob, "x", nil)
	assert.Error(t, err)

	_, err = NewSynthOrderBook(ob, "x", []*OrderBook{ob, ob, ob, ob})
	assert.Error(t, err)
}
