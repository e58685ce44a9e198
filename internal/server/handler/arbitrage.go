package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crossarb/crossarb/internal/domain"
)

// ArbitrageService defines the detector methods the arbitrage handler requires.
type ArbitrageService interface {
	ListActiveArbitrages() []domain.Arbitrage
	ListArbitrageHistory(since time.Time, limit int) []domain.Arbitrage
}

// ArbitrageHandler serves arbitrage opportunity HTTP endpoints.
type ArbitrageHandler struct {
	svc    ArbitrageService
	logger *slog.Logger
}

// NewArbitrageHandler creates an ArbitrageHandler with the given service and logger.
func NewArbitrageHandler(svc ArbitrageService, logger *slog.Logger) *ArbitrageHandler {
	return &ArbitrageHandler{svc: svc, logger: logger}
}

// arbitrageView is the wire shape of one opportunity. The conversion paths
// identify the crossing books and are carried explicitly because the books
// themselves are not serialised.
type arbitrageView struct {
	domain.Arbitrage
	BidPath string `json:"bidPath"`
	AskPath string `json:"askPath"`
}

// listArbitrageResponse wraps a list of opportunities.
type listArbitrageResponse struct {
	Arbitrages []arbitrageView `json:"arbitrages"`
}

func arbitrageViews(arbs []domain.Arbitrage) []arbitrageView {
	views := make([]arbitrageView, 0, len(arbs))
	for _, a := range arbs {
		views = append(views, arbitrageView{
			Arbitrage: a,
			BidPath:   a.BidBook.ConversionPath,
			AskPath:   a.AskBook.ConversionPath,
		})
	}
	return views
}

// ListActive returns currently open opportunities, highest PnL first.
// GET /api/arbitrage/active
func (h *ArbitrageHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	arbs := h.svc.ListActiveArbitrages()
	writeJSON(w, http.StatusOK, listArbitrageResponse{Arbitrages: arbitrageViews(arbs)})
}

// ListHistory returns ended opportunities.
// GET /api/arbitrage/history?since=2026-01-02T15:04:05Z&limit=100
func (h *ArbitrageHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since, expected RFC3339 timestamp")
			return
		}
		since = t
	}
	limit := parseLimit(r, 100, 1000)

	arbs := h.svc.ListArbitrageHistory(since, limit)
	writeJSON(w, http.StatusOK, listArbitrageResponse{Arbitrages: arbitrageViews(arbs)})
}
