package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossarb/crossarb/internal/domain"
)

type fakeArbService struct {
	active  []domain.Arbitrage
	history []domain.Arbitrage
	since   time.Time
	limit   int
}

func (f *fakeArbService) ListActiveArbitrages() []domain.Arbitrage { return f.active }

func (f *fakeArbService) ListArbitrageHistory(since time.Time, limit int) []domain.Arbitrage {
	f.since, f.limit = since, limit
	return f.history
}

type fakeSettingsService struct {
	current domain.Settings
	updated *domain.Settings
}

func (f *fakeSettingsService) Settings() domain.Settings { return f.current }

func (f *fakeSettingsService) UpdateSettings(set domain.Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	f.updated = &set
	return nil
}

type fakeSettingsStore struct {
	upserted *domain.Settings
}

func (f *fakeSettingsStore) Get(context.Context) (domain.Settings, error) {
	return domain.Settings{}, domain.ErrNotFound
}

func (f *fakeSettingsStore) Upsert(_ context.Context, s domain.Settings) error {
	f.upserted = &s
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(discard())
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListActive_EmptyIsJSONArray(t *testing.T) {
	h := NewArbitrageHandler(&fakeArbService{}, discard())
	rec := httptest.NewRecorder()

	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/arbitrage/active", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"arbitrages":[]}`, rec.Body.String())
}

func TestListActive_CarriesConversionPaths(t *testing.T) {
	arb := domain.Arbitrage{
		ID:        "op-1",
		AssetPair: domain.AssetPair{Base: "BTC", Quote: "USD"},
		BidBook:   &domain.SynthOrderBook{ConversionPath: "binance-BTC/USD"},
		AskBook:   &domain.SynthOrderBook{ConversionPath: "kraken-BTC/USD"},
	}
	h := NewArbitrageHandler(&fakeArbService{active: []domain.Arbitrage{arb}}, discard())
	rec := httptest.NewRecorder()

	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/arbitrage/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Arbitrages []struct {
			ID        string `json:"id"`
			BidPath   string `json:"bidPath"`
			AskPath   string `json:"askPath"`
			AssetPair struct {
				Base  string `json:"base"`
				Quote string `json:"quote"`
			} `json:"assetPair"`
		} `json:"arbitrages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Arbitrages, 1)
	got := body.Arbitrages[0]
	assert.Equal(t, "op-1", got.ID)
	assert.Equal(t, "binance-BTC/USD", got.BidPath)
	assert.Equal(t, "kraken-BTC/USD", got.AskPath)
	assert.Equal(t, "BTC", got.AssetPair.Base)
	assert.Equal(t, "USD", got.AssetPair.Quote)
}

func TestListHistory_ParsesQuery(t *testing.T) {
	svc := &fakeArbService{}
	h := NewArbitrageHandler(svc, discard())
	rec := httptest.NewRecorder()

	h.ListHistory(rec, httptest.NewRequest(http.MethodGet,
		"/api/arbitrage/history?since=2026-01-02T15:04:05Z&limit=7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, svc.limit)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), svc.since.UTC())
}

func TestListHistory_RejectsBadSince(t *testing.T) {
	h := NewArbitrageHandler(&fakeArbService{}, discard())
	rec := httptest.NewRecorder()

	h.ListHistory(rec, httptest.NewRequest(http.MethodGet,
		"/api/arbitrage/history?since=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_Update(t *testing.T) {
	svc := &fakeSettingsService{current: domain.DefaultSettings()}
	store := &fakeSettingsStore{}
	h := NewSettingsHandler(svc, discard()).WithSettingsStore(store)

	set := domain.DefaultSettings()
	set.MinimumPnL = decimal.NewFromInt(5)
	body, err := json.Marshal(set)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(string(body))))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	assert.True(t, svc.updated.MinimumPnL.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, store.upserted, "accepted settings are persisted")
}

func TestSettings_UpdateRejectsInvalid(t *testing.T) {
	svc := &fakeSettingsService{current: domain.DefaultSettings()}
	h := NewSettingsHandler(svc, discard())

	set := domain.DefaultSettings()
	set.MinSpread = decimal.NewFromInt(3)
	body, err := json.Marshal(set)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(string(body))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.updated)
}

func TestMatrixHistory_NotConfigured(t *testing.T) {
	h := NewMatrixHandler(nil, discard())
	rec := httptest.NewRecorder()

	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/matrix/history?pair=BTC/USD", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
