package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
)

// MatrixService defines the detector methods the matrix handler requires.
type MatrixService interface {
	SpreadMatrix(pair string) (*domain.Matrix, error)
}

// MatrixHandler serves live and persisted spread-matrix HTTP endpoints.
type MatrixHandler struct {
	svc    MatrixService
	store  domain.MatrixStore // optional; when nil, History returns 501
	logger *slog.Logger
}

// NewMatrixHandler creates a MatrixHandler with the given service and logger.
func NewMatrixHandler(svc MatrixService, logger *slog.Logger) *MatrixHandler {
	return &MatrixHandler{svc: svc, logger: logger}
}

// WithMatrixStore sets the store backing the history endpoint.
func (h *MatrixHandler) WithMatrixStore(store domain.MatrixStore) *MatrixHandler {
	h.store = store
	return h
}

// Live returns the current cross-venue spread matrix for a pair.
// GET /api/matrix?pair=BTC/USDT
func (h *MatrixHandler) Live(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		writeError(w, http.StatusBadRequest, "missing pair")
		return
	}

	m, err := h.svc.SpreadMatrix(pair)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no order books for pair")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: spread matrix failed",
			slog.String("pair", pair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build spread matrix")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// History returns persisted matrix snapshots matching the query.
// GET /api/matrix/history?pair=BTC/USDT&from=...&to=...&max_spread=0.5&exchanges=binance,kraken&limit=100
func (h *MatrixHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "matrix persistence not configured")
		return
	}

	q := r.URL.Query()
	query := domain.MatrixQuery{
		AssetPair: q.Get("pair"),
		Limit:     parseLimit(r, 100, 1000),
	}
	if query.AssetPair == "" {
		writeError(w, http.StatusBadRequest, "missing pair")
		return
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from, expected RFC3339 timestamp")
			return
		}
		query.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to, expected RFC3339 timestamp")
			return
		}
		query.To = t
	}
	if v := q.Get("max_spread"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_spread")
			return
		}
		query.MaxSpread = &d
	}
	if v := q.Get("exchanges"); v != "" {
		query.Exchanges = strings.Split(v, ",")
	}

	matrices, err := h.store.List(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list matrix snapshots failed",
			slog.String("pair", query.AssetPair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list matrix snapshots")
		return
	}
	if matrices == nil {
		matrices = []*domain.Matrix{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matrices": matrices})
}
