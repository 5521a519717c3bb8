package profile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"fintrack/internal/assets"
	"fintrack/internal/logging"
)

// SizeHint selects which variant GetOptimizedPath returns.
type SizeHint string

// Size hints.
const (
	SizeSmall  SizeHint = "small"
	SizeMedium SizeHint = "medium"
	SizeLarge  SizeHint = "large"
	SizeCustom SizeHint = "custom"
)

// Slot is the logical "current photo" for one owner. If PrimaryPath is set,
// ThumbnailPath is the deterministic transform of it from the same
// generation event.
type Slot struct {
	OwnerID       string    `json:"ownerId"`
	PrimaryPath   string    `json:"primaryPath,omitempty"`
	ThumbnailPath string    `json:"thumbnailPath,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Empty reports whether the slot holds no photo. A primary without its
// thumbnail (or vice versa) is inconsistent and treated as no photo.
func (s Slot) Empty() bool {
	return s.PrimaryPath == "" || s.ThumbnailPath == ""
}

// Facade owns the in-memory slot for one session and coordinates the
// processor, record store and identity provider.
type Facade struct {
	ownerID   string
	processor VariantGenerator
	device    CaptureDevice
	records   RecordStore
	identity  IdentityProvider

	mu      sync.Mutex
	pending bool
	slot    Slot
}

// New creates a Facade for one owner session.
func New(ownerID string, processor VariantGenerator, device CaptureDevice, records RecordStore, identity IdentityProvider) *Facade {
	return &Facade{
		ownerID:   ownerID,
		processor: processor,
		device:    device,
		records:   records,
		identity:  identity,
	}
}

// begin claims the slot for one mutation; concurrent mutations get ErrBusy.
func (f *Facade) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return ErrBusy
	}
	f.pending = true
	return nil
}

func (f *Facade) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
}

// Capture takes a new photo with the device camera and installs it.
func (f *Facade) Capture(ctx context.Context) (Slot, error) {
	if err := f.begin(); err != nil {
		return Slot{}, err
	}
	defer f.end()

	if err := f.device.RequestCameraPermission(ctx); err != nil {
		return Slot{}, err
	}
	source, err := f.device.Capture(ctx)
	if err != nil {
		return Slot{}, err
	}
	return f.install(ctx, source)
}

// Select picks an existing photo from the device gallery and installs it.
func (f *Facade) Select(ctx context.Context) (Slot, error) {
	if err := f.begin(); err != nil {
		return Slot{}, err
	}
	defer f.end()

	if err := f.device.RequestGalleryPermission(ctx); err != nil {
		return Slot{}, err
	}
	source, err := f.device.PickFromGallery(ctx)
	if err != nil {
		return Slot{}, err
	}
	return f.install(ctx, source)
}

// install generates the new pair, swaps the slot, retires the old pair and
// publishes the new path. The old pair stays untouched until the new pair
// is fully written, so a failed generation never loses the current photo.
func (f *Facade) install(ctx context.Context, sourcePath string) (Slot, error) {
	pair, err := f.processor.GenerateVariants(ctx, sourcePath)
	if err != nil {
		return Slot{}, err
	}

	f.mu.Lock()
	old := f.slot
	f.slot = Slot{
		OwnerID:       f.ownerID,
		PrimaryPath:   pair.PrimaryPath,
		ThumbnailPath: pair.ThumbnailPath,
		UpdatedAt:     time.Now(),
	}
	updated := f.slot
	f.mu.Unlock()

	f.retire(old)
	f.publish(ctx, pair.PrimaryPath)

	return updated, nil
}

// retire best-effort deletes a replaced variant pair. Failures are logged
// only; the collector will reap anything left behind.
func (f *Facade) retire(old Slot) {
	for _, path := range []string{old.PrimaryPath, old.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := assets.DeleteIfExists(path); err != nil {
			logging.Warn("failed to delete replaced variant %s: %v", path, err)
		}
	}
}

// publish writes the authoritative record-store field first, then mirrors
// the change to the identity hint. A partial failure is recoverable: the
// next Refresh reconciles from the authoritative field.
func (f *Facade) publish(ctx context.Context, primaryPath string) {
	if err := f.records.SetProfilePhotoPath(ctx, f.ownerID, primaryPath); err != nil {
		logging.Warn("failed to publish profile photo path: %v", err)
	}
	if f.identity == nil {
		return
	}
	// The identity hint is cleared rather than synced; the local path is
	// authoritative for display.
	if err := f.identity.SetPhotoHint(ctx, f.ownerID, ""); err != nil {
		logging.Warn("failed to clear identity photo hint: %v", err)
	}
}

// Remove deletes the current photo after interactive confirmation. The
// confirmation capability is supplied by the caller, never performed here.
func (f *Facade) Remove(ctx context.Context, confirm Confirmer) error {
	if err := f.begin(); err != nil {
		return err
	}
	defer f.end()

	if confirm != nil {
		ok, err := confirm(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserCancelled
		}
	}

	f.mu.Lock()
	old := f.slot
	f.slot = Slot{OwnerID: f.ownerID, UpdatedAt: time.Now()}
	f.mu.Unlock()

	if old.PrimaryPath != "" {
		if err := assets.DeleteIfExists(old.PrimaryPath); err != nil {
			logging.Warn("failed to delete removed photo %s: %v", old.PrimaryPath, err)
		}
	}

	// Authoritative clear first; the hint mirror is best effort.
	if err := f.records.SetProfilePhotoPath(ctx, f.ownerID, ""); err != nil {
		return fmt.Errorf("failed to clear profile photo path: %w", err)
	}
	if f.identity != nil {
		if err := f.identity.SetPhotoHint(ctx, f.ownerID, ""); err != nil {
			logging.Warn("failed to clear identity photo hint: %v", err)
		}
	}

	return nil
}

// Refresh re-derives the slot from the record store when the in-memory
// slot is empty or its file is gone. It never replaces a live local path
// with an empty remote value, so a slow remote read cannot blank a photo
// that was just captured.
func (f *Facade) Refresh(ctx context.Context) (Slot, error) {
	f.mu.Lock()
	current := f.slot
	f.mu.Unlock()

	if !current.Empty() {
		if _, err := os.Stat(current.PrimaryPath); err == nil {
			return current, nil
		}
		logging.Debug("Slot primary %s missing on disk, re-deriving from record store", current.PrimaryPath)
	}

	remote, err := f.records.GetProfilePhotoPath(ctx, f.ownerID)
	if err != nil {
		return current, fmt.Errorf("failed to read profile photo path: %w", err)
	}

	if remote == "" {
		// Nothing published remotely; keep whatever we have.
		return current, nil
	}

	updated := Slot{
		OwnerID:       f.ownerID,
		PrimaryPath:   remote,
		ThumbnailPath: assets.ThumbnailPathFor(remote),
		UpdatedAt:     time.Now(),
	}

	f.mu.Lock()
	// A mutation may have landed while we read; never clobber it.
	if f.slot.Empty() || f.slot.PrimaryPath == current.PrimaryPath {
		f.slot = updated
	}
	updated = f.slot
	f.mu.Unlock()

	return updated, nil
}

// GetOptimizedPath resolves a size hint against the current slot without
// any I/O. Small resolves to the thumbnail transform of the primary; all
// other hints return the primary unchanged. Empty slot yields "".
func (f *Facade) GetOptimizedPath(hint SizeHint) string {
	f.mu.Lock()
	slot := f.slot
	f.mu.Unlock()

	if slot.Empty() {
		return ""
	}
	if hint == SizeSmall {
		return assets.ThumbnailPathFor(slot.PrimaryPath)
	}
	return slot.PrimaryPath
}

// Slot returns a copy of the current slot.
func (f *Facade) Slot() Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slot
}

// ActivePaths lists the slot's variant paths for the collector's reference
// set.
func (f *Facade) ActivePaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var paths []string
	if f.slot.PrimaryPath != "" {
		paths = append(paths, f.slot.PrimaryPath)
	}
	if f.slot.ThumbnailPath != "" {
		paths = append(paths, f.slot.ThumbnailPath)
	}
	return paths
}
