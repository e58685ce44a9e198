package handler

import (
	"log/slog"
	"net/http"

	"github.com/crossarb/crossarb/internal/domain"
)

// BookService defines the detector methods the order-book handler requires.
type BookService interface {
	ListOrderBooks(exchange, pair string) []domain.OrderBook
	ListSynthOrderBooks() []domain.SynthOrderBook
}

// BookHandler serves raw and synthetic order-book HTTP endpoints.
type BookHandler struct {
	svc    BookService
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler with the given service and logger.
func NewBookHandler(svc BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{svc: svc, logger: logger}
}

// ListOrderBooks returns the most recent raw book per (exchange, pair).
// GET /api/orderbooks?exchange=binance&pair=BTC/USDT
func (h *BookHandler) ListOrderBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books := h.svc.ListOrderBooks(q.Get("exchange"), q.Get("pair"))
	if books == nil {
		books = []domain.OrderBook{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderbooks": books})
}

// ListSynthOrderBooks returns the synthetic books built in the last cycle.
// GET /api/orderbooks/synthetic
func (h *BookHandler) ListSynthOrderBooks(w http.ResponseWriter, r *http.Request) {
	books := h.svc.ListSynthOrderBooks()
	if books == nil {
		books = []domain.SynthOrderBook{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderbooks": books})
}
