package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Detector.Interval = duration{0}
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Detector.MinSpread = 0.5
	assert.Error(t, cfg.Validate(), "a positive min spread would match uncrossed markets")

	cfg = Defaults()
	cfg.Feeds = []FeedSpec{{Name: "", URL: ""}}
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Postgres.Enabled = true
	cfg.Postgres.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[detector]
interval = "500ms"
min_spread = -0.2
base_assets = ["BTC", "ETH", "XMR"]

[[feeds]]
name = "binance"
url = "wss://example.test/ws"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.Detector.Interval.Duration)
	assert.Equal(t, []string{"BTC", "ETH", "XMR"}, cfg.Detector.BaseAssets)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "binance", cfg.Feeds[0].Name)

	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Detector.ExpirationTimeSeconds)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[detector]
quote_asset = "USD"
`), 0o600))

	t.Setenv("CROSSARB_DETECTOR_QUOTE_ASSET", "EUR")
	t.Setenv("CROSSARB_DETECTOR_BASE_ASSETS", "BTC, ETH")
	t.Setenv("CROSSARB_DETECTOR_INTERVAL", "3s")
	t.Setenv("CROSSARB_REDIS_ENABLED", "true")
	t.Setenv("CROSSARB_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.Detector.QuoteAsset)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Detector.BaseAssets)
	assert.Equal(t, 3*time.Second, cfg.Detector.Interval.Duration)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestDetectorSettings_Conversion(t *testing.T) {
	cfg := Defaults()
	cfg.Detector.MinimumPnL = 12.5
	cfg.Detector.MinSpread = -0.75

	set := cfg.DetectorSettings()
	assert.True(t, set.MinimumPnL.Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, set.MinSpread.Equal(decimal.NewFromFloat(-0.75)))
	assert.Equal(t, cfg.Detector.BaseAssets, set.BaseAssets)
	assert.NoError(t, set.Validate())
}

func TestKnownPairs_SkipsInvalidEntries(t *testing.T) {
	cfg := Defaults()
	cfg.Assets.Pairs = []PairSpec{
		{Base: "BTC", Quote: "USD", Accuracy: 2, InvertedAccuracy: 8},
		{Base: "", Quote: "USD"},
	}

	pairs := cfg.KnownPairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "BTC/USD", pairs[0].Name())
	assert.Equal(t, 2, pairs[0].Accuracy)
}
