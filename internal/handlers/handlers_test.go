package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/assets"
	"fintrack/internal/cache"
	"fintrack/internal/collector"
	"fintrack/internal/database"
	"fintrack/internal/profile"
	"fintrack/internal/settings"
	"fintrack/internal/startup"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
)

type testEnv struct {
	handlers *Handlers
	router   *mux.Router
	db       *database.Database
	assetDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	assetDir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	store := settings.NewStore(db)
	scratch := cache.New(t.TempDir(), true)
	processor := assets.NewProcessor(assetDir, store, nil)
	coll := collector.New(assetDir, db, db, nil, store, scratch)
	device := NewStagedDevice()
	facade := profile.New("owner", processor, device, db, nil)
	coll.SetSlotSource(facade)

	config := &startup.Config{OwnerID: "owner"}
	h := New(db, facade, coll, store, scratch, device, config)

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &testEnv{handlers: h, router: router, db: db, assetDir: assetDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("Failed to encode payload: %v", err)
		}
	}
	return e.do(t, method, path, &body, "application/json")
}

// photoUpload builds a multipart body holding a small generated JPEG.
func photoUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	img := imaging.New(400, 300, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
	var imgBuf bytes.Buffer
	if err := imaging.Encode(&imgBuf, img, imaging.JPEG); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "upload.jpg")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(imgBuf.Bytes()); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	return &body, writer.FormDataContentType()
}

func TestRecordsCRUD(t *testing.T) {
	env := newTestEnv(t)

	// Create
	w := env.doJSON(t, http.MethodPost, "/api/records", map[string]interface{}{
		"kind":        "expense",
		"amountCents": 995,
		"category":    "coffee",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", w.Code, w.Body.String())
	}

	var created database.Record
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode created record: %v", err)
	}
	if created.ID == "" || created.OwnerID != "owner" {
		t.Errorf("Created record = %+v", created)
	}

	// List
	w = env.do(t, http.MethodGet, "/api/records", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("List status = %d", w.Code)
	}
	var records []database.Record
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to decode records: %v", err)
	}
	if len(records) != 1 || records[0].ID != created.ID {
		t.Errorf("List = %+v", records)
	}

	// Delete
	w = env.do(t, http.MethodDelete, "/api/records/"+created.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Delete status = %d", w.Code)
	}

	// Delete again: not found.
	w = env.do(t, http.MethodDelete, "/api/records/"+created.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Second delete status = %d, want 404", w.Code)
	}
}

func TestCreateRecordInvalidKind(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/records", map[string]interface{}{
		"kind":        "transfer",
		"amountCents": 100,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestListRecordsEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/records", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Empty list body = %q, want []", w.Body.String())
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// Defaults on first read.
	w := env.do(t, http.MethodGet, "/api/settings", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Get status = %d", w.Code)
	}
	var got settings.ImageSettings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if got != settings.Defaults() {
		t.Errorf("First read = %+v, want defaults", got)
	}

	// Partial update.
	w = env.doJSON(t, http.MethodPatch, "/api/settings", map[string]interface{}{
		"qualityPercent": 60,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Patch status = %d, body %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if got.QualityPercent != 60 {
		t.Errorf("QualityPercent = %d, want 60", got.QualityPercent)
	}
	if got.MaxDimensionPx != settings.Defaults().MaxDimensionPx {
		t.Error("Partial update changed unrelated field")
	}

	// Invalid update rejected.
	w = env.doJSON(t, http.MethodPatch, "/api/settings", map[string]interface{}{
		"qualityPercent": 250,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Invalid patch status = %d, want 400", w.Code)
	}

	// Reset.
	w = env.do(t, http.MethodPost, "/api/settings/reset", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Reset status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode settings: %v", err)
	}
	if got != settings.Defaults() {
		t.Errorf("Reset = %+v, want defaults", got)
	}
}

func TestPhotoLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Upload via capture.
	body, contentType := photoUpload(t)
	w := env.do(t, http.MethodPost, "/api/photo/capture", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("Capture status = %d, body %s", w.Code, w.Body.String())
	}

	var slot profile.Slot
	if err := json.Unmarshal(w.Body.Bytes(), &slot); err != nil {
		t.Fatalf("Failed to decode slot: %v", err)
	}
	if slot.Empty() {
		t.Fatal("Slot empty after capture")
	}
	if _, err := os.Stat(slot.PrimaryPath); err != nil {
		t.Fatalf("Primary missing: %v", err)
	}
	if _, err := os.Stat(slot.ThumbnailPath); err != nil {
		t.Fatalf("Thumbnail missing: %v", err)
	}

	// Photo is published to the record store.
	published, err := env.db.GetProfilePhotoPath(context.Background(), "owner")
	if err != nil {
		t.Fatalf("GetProfilePhotoPath failed: %v", err)
	}
	if published != slot.PrimaryPath {
		t.Errorf("Published path = %q, want %q", published, slot.PrimaryPath)
	}

	// Optimized path resolution.
	w = env.do(t, http.MethodGet, "/api/photo/optimized?size=small", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Optimized status = %d", w.Code)
	}
	var resolved map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("Failed to decode optimized response: %v", err)
	}
	if resolved["path"] != assets.ThumbnailPathFor(slot.PrimaryPath) {
		t.Errorf("Small path = %q", resolved["path"])
	}

	// Remove requires confirmation.
	w = env.do(t, http.MethodDelete, "/api/photo", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unconfirmed remove status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/photo?confirm=true", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Confirmed remove status = %d, body %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(slot.PrimaryPath); !os.IsNotExist(err) {
		t.Error("Primary still exists after remove")
	}
}

func TestPhotoSelectReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := photoUpload(t)
	w := env.do(t, http.MethodPost, "/api/photo/select", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("First select status = %d", w.Code)
	}
	var first profile.Slot
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("Failed to decode slot: %v", err)
	}

	body, contentType = photoUpload(t)
	w = env.do(t, http.MethodPost, "/api/photo/select", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("Second select status = %d", w.Code)
	}
	var second profile.Slot
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("Failed to decode slot: %v", err)
	}

	if second.PrimaryPath == first.PrimaryPath {
		t.Error("Second select reused the first primary path")
	}
	if _, err := os.Stat(first.PrimaryPath); !os.IsNotExist(err) {
		t.Error("Replaced primary still exists")
	}
}

func TestPhotoUploadMissingFile(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/photo/capture", &body, writer.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestGetPhotoEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/photo", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	var slot profile.Slot
	if err := json.Unmarshal(w.Body.Bytes(), &slot); err != nil {
		t.Fatalf("Failed to decode slot: %v", err)
	}
	if !slot.Empty() {
		t.Errorf("Fresh slot = %+v, want empty", slot)
	}
}

func TestCleanupEndpoint(t *testing.T) {
	env := newTestEnv(t)

	orphan := filepath.Join(env.assetDir, "profile_999.jpg")
	if err := os.WriteFile(orphan, []byte("orphan"), 0o644); err != nil {
		t.Fatalf("Failed to write orphan: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/cleanup", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Cleanup status = %d, body %s", w.Code, w.Body.String())
	}

	var run collector.CleanupRun
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("Failed to decode run: %v", err)
	}
	if len(run.DeletedPaths) != 1 || run.DeletedPaths[0] != orphan {
		t.Errorf("DeletedPaths = %v, want [%s]", run.DeletedPaths, orphan)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("Orphan still exists after cleanup")
	}
}

func TestStorageStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		path := filepath.Join(env.assetDir, fmt.Sprintf("profile_%d.jpg", i))
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("Failed to write asset: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/api/storage/stats", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}

	var stats collector.StorageStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.AssetCount != 2 || stats.OrphanCount != 2 {
		t.Errorf("Stats = %+v, want 2 assets, 2 orphans", stats)
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.handlers.cache.WriteTemp(".bin", bytes.NewReader(make([]byte, 512))); err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/cache/clear", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}

	var resp map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["freedBytes"] != 512 {
		t.Errorf("freedBytes = %d, want 512", resp["freedBytes"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/livez", "/readyz", "/version"} {
		w := env.do(t, http.MethodGet, path, nil, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/health", nil, "")
	var health HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", health.Status, statusHealthy)
	}
}

func TestStagedDevice(t *testing.T) {
	d := NewStagedDevice()

	// Nothing staged reads as a cancellation.
	if _, err := d.Capture(context.Background()); err == nil {
		t.Error("Expected error with nothing staged")
	}

	d.Stage("/tmp/upload.jpg")
	path, err := d.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if path != "/tmp/upload.jpg" {
		t.Errorf("Path = %q", path)
	}

	// The staged path is consumed.
	if _, err := d.PickFromGallery(context.Background()); err == nil {
		t.Error("Expected error after the staged path was consumed")
	}
}
