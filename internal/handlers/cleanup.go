package handlers

import (
	"errors"
	"net/http"

	"fintrack/internal/collector"
	"fintrack/internal/logging"
)

// RunCleanup triggers an immediate orphan collection pass, bypassing the
// interval rate limit. A pass already in flight yields 409.
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	run, err := h.collector.CollectOrphans(r.Context(), h.ownerID)
	if err != nil {
		if errors.Is(err, collector.ErrAlreadyRunning) {
			writeJSONError(w, "cleanup already running", http.StatusConflict)
			return
		}
		logging.Error("cleanup pass failed: %v", err)
		writeJSONError(w, "cleanup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, run)
}

// GetStorageStats reports asset, orphan and cache sizes without mutating
// anything.
func (h *Handlers) GetStorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.collector.Stats(r.Context(), h.ownerID)
	if err != nil {
		logging.Error("failed to compute storage stats: %v", err)
		writeJSONError(w, "failed to compute storage stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

// ClearCache empties the ephemeral cache regardless of the high-water mark.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	freed, err := h.cache.Clear()
	if err != nil {
		logging.Error("failed to clear cache: %v", err)
		writeJSONError(w, "failed to clear cache", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int64{"freedBytes": freed})
}
