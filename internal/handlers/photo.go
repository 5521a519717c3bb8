package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fintrack/internal/assets"
	"fintrack/internal/logging"
	"fintrack/internal/profile"
)

// Uploads above this size are rejected before decoding.
const maxUploadBytes = 32 << 20

// CapturePhoto installs an uploaded camera image as the profile photo.
func (h *Handlers) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	h.installPhoto(w, r, h.facade.Capture)
}

// SelectPhoto installs an uploaded gallery image as the profile photo.
func (h *Handlers) SelectPhoto(w http.ResponseWriter, r *http.Request) {
	h.installPhoto(w, r, h.facade.Select)
}

func (h *Handlers) installPhoto(w http.ResponseWriter, r *http.Request, op func(context.Context) (profile.Slot, error)) {
	staged, err := h.stageUpload(r)
	if err != nil {
		logging.Warn("failed to stage upload: %v", err)
		writeJSONError(w, "invalid upload", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := assets.DeleteIfExists(staged); err != nil {
			logging.Warn("failed to remove staged upload %s: %v", staged, err)
		}
	}()

	h.device.Stage(staged)

	slot, err := op(r.Context())
	if err != nil {
		logging.Error("photo install failed: %v", err)
		writeJSONError(w, err.Error(), photoErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, slot)
}

// stageUpload writes the uploaded image to scratch space and returns its
// path. The caller removes it once the install completes.
func (h *Handlers) stageUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close upload: %v", err)
		}
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}

	if h.cache != nil && h.cache.IsEnabled() {
		return h.cache.WriteTemp(ext, file)
	}

	// Cache disabled; fall back to the OS temp dir.
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// photoErrorStatus maps lifecycle errors onto HTTP status codes.
func photoErrorStatus(err error) int {
	switch {
	case errors.Is(err, profile.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, profile.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, profile.ErrUserCancelled):
		return http.StatusBadRequest
	case errors.Is(err, assets.ErrProcessing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RemovePhoto deletes the current profile photo. Confirmation arrives as
// the confirm query parameter; the handler never confirms on its own.
func (h *Handlers) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	err := h.facade.Remove(r.Context(), func(context.Context) (bool, error) {
		return confirmed, nil
	})
	if err != nil {
		if errors.Is(err, profile.ErrUserCancelled) {
			writeJSONError(w, "confirmation required", http.StatusBadRequest)
			return
		}
		logging.Error("failed to remove photo: %v", err)
		writeJSONError(w, "failed to remove photo", photoErrorStatus(err))
		return
	}

	writeJSONStatus(w, "removed")
}

// GetPhoto returns the current slot, refreshing from the record store when
// the in-memory slot is empty or stale.
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	slot, err := h.facade.Refresh(r.Context())
	if err != nil {
		logging.Error("failed to refresh photo slot: %v", err)
		writeJSONError(w, "failed to refresh photo", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, slot)
}

// GetOptimizedPath resolves a size hint to a variant path.
func (h *Handlers) GetOptimizedPath(w http.ResponseWriter, r *http.Request) {
	hint := profile.SizeHint(r.URL.Query().Get("size"))
	if hint == "" {
		hint = profile.SizeMedium
	}

	path := h.facade.GetOptimizedPath(hint)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"path": path})
}
