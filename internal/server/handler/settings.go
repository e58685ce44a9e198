package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/crossarb/crossarb/internal/domain"
)

// SettingsService defines the detector methods the settings handler requires.
type SettingsService interface {
	Settings() domain.Settings
	UpdateSettings(set domain.Settings) error
}

// SettingsHandler serves detection settings HTTP endpoints.
type SettingsHandler struct {
	svc    SettingsService
	store  domain.SettingsStore // optional; when nil, updates are in-memory only
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler with the given service and logger.
func NewSettingsHandler(svc SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger}
}

// WithSettingsStore persists accepted updates across restarts.
func (h *SettingsHandler) WithSettingsStore(store domain.SettingsStore) *SettingsHandler {
	h.store = store
	return h
}

// Get returns the settings currently driving detection.
// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// Update replaces the detection settings. The detector applies them at the
// start of its next cycle, discarding all accumulated state.
// PUT /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var set domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.UpdateSettings(set); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Upsert(r.Context(), set); err != nil {
			// The running detector already accepted the update; losing the
			// persisted copy is worth a warning, not a failed request.
			h.logger.WarnContext(r.Context(), "handler: persist settings failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
