package handlers

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/database"
	"fintrack/internal/logging"

	"github.com/gorilla/mux"
)

// ListRecords returns every record for the configured owner, newest first.
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.ListRecords(r.Context(), h.ownerID)
	if err != nil {
		logging.Error("failed to list records: %v", err)
		writeJSONError(w, "failed to list records", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []database.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}

// CreateRecord inserts a new financial record.
func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec database.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !rec.Kind.Valid() {
		writeJSONError(w, "kind must be income or expense", http.StatusBadRequest)
		return
	}

	rec.OwnerID = h.ownerID
	if err := h.db.CreateRecord(r.Context(), &rec); err != nil {
		logging.Error("failed to create record: %v", err)
		writeJSONError(w, "failed to create record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rec)
}

// DeleteRecord removes a record by ID. The record's receipt asset, if any,
// is not deleted here; the next collection pass reclaims it once no record
// references it.
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	deleted, err := h.db.DeleteRecord(r.Context(), h.ownerID, id)
	if err != nil {
		logging.Error("failed to delete record %s: %v", id, err)
		writeJSONError(w, "failed to delete record", http.StatusInternalServerError)
		return
	}
	if !deleted {
		writeJSONError(w, "record not found", http.StatusNotFound)
		return
	}

	writeJSONStatus(w, "deleted")
}
