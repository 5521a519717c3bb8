package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/settings"
)

type fakeRefs struct {
	paths   []string
	err     error
	block   chan struct{}
	release chan struct{}
}

func (f *fakeRefs) ListReceiptPaths(_ context.Context, _ string) ([]string, error) {
	if f.block != nil {
		close(f.block)
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.paths, nil
}

type fakeSlots struct {
	paths []string
}

func (f *fakeSlots) ActivePaths() []string {
	return f.paths
}

type fakeMarks struct {
	last    time.Time
	found   bool
	lastErr error
	sets    []time.Time
}

func (f *fakeMarks) LastCleanup(_ context.Context, _ string) (time.Time, bool, error) {
	return f.last, f.found, f.lastErr
}

func (f *fakeMarks) SetLastCleanup(_ context.Context, _ string, t time.Time) error {
	f.sets = append(f.sets, t)
	return nil
}

type fakeSettingsSource struct {
	cfg settings.ImageSettings
}

func (f *fakeSettingsSource) Load(_ context.Context) (settings.ImageSettings, error) {
	return f.cfg, nil
}

func enabledSettings() *fakeSettingsSource {
	return &fakeSettingsSource{cfg: settings.Defaults()}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("image bytes"), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestCollectOrphans(t *testing.T) {
	dir := t.TempDir()

	referenced := filepath.Join(dir, "profile_100.jpg")
	referencedThumb := filepath.Join(dir, "profile_small_100.jpg")
	orphan := filepath.Join(dir, "profile_200.jpg")
	orphanThumb := filepath.Join(dir, "profile_small_200.jpg")
	notAnImage := filepath.Join(dir, "notes.txt")

	for _, p := range []string{referenced, referencedThumb, orphan, orphanThumb, notAnImage} {
		writeFile(t, p)
	}

	refs := &fakeRefs{paths: []string{referenced}}
	slots := &fakeSlots{paths: []string{referenced, referencedThumb}}
	c := New(dir, refs, &fakeMarks{}, slots, enabledSettings(), nil)

	run, err := c.CollectOrphans(context.Background(), "owner")
	if err != nil {
		t.Fatalf("CollectOrphans failed: %v", err)
	}

	if run.ScannedCount != 4 {
		t.Errorf("ScannedCount = %d, want 4 image files", run.ScannedCount)
	}
	if len(run.DeletedPaths) != 2 {
		t.Fatalf("DeletedPaths = %v, want 2 orphans", run.DeletedPaths)
	}
	if run.FreedBytes != 2*int64(len("image bytes")) {
		t.Errorf("FreedBytes = %d, want %d", run.FreedBytes, 2*len("image bytes"))
	}
	if run.SkippedErrors != 0 {
		t.Errorf("SkippedErrors = %d, want 0", run.SkippedErrors)
	}

	for _, p := range []string{referenced, referencedThumb, notAnImage} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Referenced or non-image file %s was deleted", p)
		}
	}
	for _, p := range []string{orphan, orphanThumb} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Orphan %s still exists", p)
		}
	}
}

func TestCollectOrphansAbortsOnReferenceReadFailure(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "profile_1.jpg")
	writeFile(t, orphan)

	refs := &fakeRefs{err: errors.New("db unavailable")}
	c := New(dir, refs, &fakeMarks{}, nil, enabledSettings(), nil)

	_, err := c.CollectOrphans(context.Background(), "owner")
	if !errors.Is(err, ErrReferenceRead) {
		t.Fatalf("Expected ErrReferenceRead, got %v", err)
	}

	// Conservative abort: nothing deleted.
	if _, err := os.Stat(orphan); err != nil {
		t.Error("File was deleted despite reference read failure")
	}
}

func TestCollectOrphansSingleFlight(t *testing.T) {
	dir := t.TempDir()

	refs := &fakeRefs{
		block:   make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(dir, refs, &fakeMarks{}, nil, enabledSettings(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.CollectOrphans(context.Background(), "owner")
		done <- err
	}()

	// Wait until the first pass is inside the reference read.
	<-refs.block
	if !c.IsRunning() {
		t.Error("IsRunning = false during a pass")
	}

	_, err := c.CollectOrphans(context.Background(), "owner")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Second pass error = %v, want ErrAlreadyRunning", err)
	}

	close(refs.release)
	if err := <-done; err != nil {
		t.Fatalf("First pass failed: %v", err)
	}
	if c.IsRunning() {
		t.Error("IsRunning = true after the pass finished")
	}
}

func TestCollectOrphansSkipsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "profile_1.jpg")
	writeFile(t, orphan)

	cfg := settings.Defaults()
	cfg.AutoCleanupEnabled = false
	c := New(dir, &fakeRefs{}, &fakeMarks{}, nil, &fakeSettingsSource{cfg: cfg}, nil)

	run, err := c.CollectOrphans(context.Background(), "owner")
	if err != nil {
		t.Fatalf("CollectOrphans failed: %v", err)
	}
	if run.ScannedCount != 0 || len(run.DeletedPaths) != 0 {
		t.Errorf("Disabled cleanup still scanned or deleted: %+v", run)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Error("Disabled cleanup deleted a file")
	}
}

func TestScheduleCleanupRateLimit(t *testing.T) {
	dir := t.TempDir()

	t.Run("Not due", func(t *testing.T) {
		marks := &fakeMarks{last: time.Now().Add(-24 * time.Hour), found: true}
		c := New(dir, &fakeRefs{}, marks, nil, enabledSettings(), nil)

		triggered, err := c.ScheduleCleanup(context.Background(), "owner")
		if err != nil {
			t.Fatalf("ScheduleCleanup failed: %v", err)
		}
		if triggered {
			t.Error("Pass triggered although only 1 of 7 days elapsed")
		}
		if len(marks.sets) != 0 {
			t.Error("Marker updated although no pass was triggered")
		}
	})

	t.Run("Due after interval", func(t *testing.T) {
		marks := &fakeMarks{last: time.Now().Add(-8 * 24 * time.Hour), found: true}
		c := New(dir, &fakeRefs{}, marks, nil, enabledSettings(), nil)

		triggered, err := c.ScheduleCleanup(context.Background(), "owner")
		if err != nil {
			t.Fatalf("ScheduleCleanup failed: %v", err)
		}
		if !triggered {
			t.Error("Pass not triggered after the interval elapsed")
		}
		if len(marks.sets) != 1 {
			t.Errorf("Marker set %d times, want 1", len(marks.sets))
		}
	})

	t.Run("No marker triggers immediately", func(t *testing.T) {
		marks := &fakeMarks{}
		c := New(dir, &fakeRefs{}, marks, nil, enabledSettings(), nil)

		triggered, err := c.ScheduleCleanup(context.Background(), "owner")
		if err != nil {
			t.Fatalf("ScheduleCleanup failed: %v", err)
		}
		if !triggered {
			t.Error("Pass not triggered without a marker")
		}
	})
}

func TestScheduleCleanupMarkerFailure(t *testing.T) {
	c := New(t.TempDir(), &fakeRefs{}, &fakeMarks{lastErr: errors.New("read failed")}, nil, enabledSettings(), nil)

	triggered, err := c.ScheduleCleanup(context.Background(), "owner")
	if err == nil {
		t.Fatal("Expected error when the marker cannot be read")
	}
	if triggered {
		t.Error("Pass triggered despite marker read failure")
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	referenced := filepath.Join(dir, "profile_1.jpg")
	orphan := filepath.Join(dir, "profile_2.jpg")
	writeFile(t, referenced)
	writeFile(t, orphan)

	refs := &fakeRefs{paths: []string{referenced}}
	c := New(dir, refs, &fakeMarks{}, nil, enabledSettings(), nil)

	stats, err := c.Stats(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.AssetCount != 2 {
		t.Errorf("AssetCount = %d, want 2", stats.AssetCount)
	}
	if stats.OrphanCount != 1 {
		t.Errorf("OrphanCount = %d, want 1", stats.OrphanCount)
	}
	wantBytes := int64(len("image bytes"))
	if stats.OrphanBytes != wantBytes {
		t.Errorf("OrphanBytes = %d, want %d", stats.OrphanBytes, wantBytes)
	}
	if stats.AssetBytes != 2*wantBytes {
		t.Errorf("AssetBytes = %d, want %d", stats.AssetBytes, 2*wantBytes)
	}

	// Stats never deletes.
	if _, err := os.Stat(orphan); err != nil {
		t.Error("Stats deleted a file")
	}
}
