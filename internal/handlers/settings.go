package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/logging"
	"fintrack/internal/settings"
)

// GetSettings returns the current image settings, initializing defaults on
// first run.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Load(r.Context())
	if err != nil {
		logging.Error("failed to load settings: %v", err)
		writeJSONError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, current)
}

// UpdateSettings merges a partial settings update. Out-of-range values are
// rejected and nothing changes.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.settings.ApplyUpdate(r.Context(), update)
	if err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.Error("failed to update settings: %v", err)
		writeJSONError(w, "failed to update settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, updated)
}

// ResetSettings restores and persists the fixed defaults.
func (h *Handlers) ResetSettings(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.settings.Reset(r.Context())
	if err != nil {
		logging.Error("failed to reset settings: %v", err)
		writeJSONError(w, "failed to reset settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, defaults)
}
