package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires every API endpoint onto the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	// Financial records
	api.HandleFunc("/records", h.ListRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", h.CreateRecord).Methods(http.MethodPost)
	api.HandleFunc("/records/{id}", h.DeleteRecord).Methods(http.MethodDelete)

	// Profile photo lifecycle
	api.HandleFunc("/photo", h.GetPhoto).Methods(http.MethodGet)
	api.HandleFunc("/photo", h.RemovePhoto).Methods(http.MethodDelete)
	api.HandleFunc("/photo/capture", h.CapturePhoto).Methods(http.MethodPost)
	api.HandleFunc("/photo/select", h.SelectPhoto).Methods(http.MethodPost)
	api.HandleFunc("/photo/optimized", h.GetOptimizedPath).Methods(http.MethodGet)

	// Image settings
	api.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPatch)
	api.HandleFunc("/settings/reset", h.ResetSettings).Methods(http.MethodPost)

	// Storage maintenance
	api.HandleFunc("/cleanup", h.RunCleanup).Methods(http.MethodPost)
	api.HandleFunc("/storage/stats", h.GetStorageStats).Methods(http.MethodGet)
	api.HandleFunc("/cache/clear", h.ClearCache).Methods(http.MethodPost)

	// Health and version
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/livez", h.Livez).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
}
