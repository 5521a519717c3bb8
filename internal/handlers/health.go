package handlers

import (
	"net/http"
	"runtime"
	"time"

	"fintrack/internal/startup"
)

const (
	statusHealthy = "healthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Uptime         string `json:"uptime"`
	CleanupRunning bool   `json:"cleanupRunning"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:         statusHealthy,
		Version:        startup.Version,
		Uptime:         time.Since(h.startedAt).Round(time.Second).String(),
		CleanupRunning: h.collector.IsRunning(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// Livez is the liveness probe: process up, nothing more.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ok")
}

// Readyz is the readiness probe. The database is the only hard dependency.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSONError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready")
}
