// Package profile owns the per-session photo slot and coordinates variant
// generation, remote publication and retirement of replaced files.
package profile

import (
	"context"
	"errors"

	"fintrack/internal/assets"
)

// Sentinel errors surfaced to callers for user-facing messaging.
var (
	// ErrPermissionDenied means the device refused camera or gallery
	// access. Not retried automatically.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUserCancelled means the user backed out of a capture, pick or
	// confirmation.
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrBusy means another slot mutation is in flight. Concurrent edits
	// of one slot have no merge semantics, so the second call is rejected
	// rather than queued.
	ErrBusy = errors.New("photo operation already in progress")
)

// CaptureDevice is the device camera/gallery boundary. Implementations
// return ErrPermissionDenied or ErrUserCancelled as appropriate.
type CaptureDevice interface {
	RequestCameraPermission(ctx context.Context) error
	RequestGalleryPermission(ctx context.Context) error
	Capture(ctx context.Context) (string, error)
	PickFromGallery(ctx context.Context) (string, error)
}

// RecordStore is the authoritative remote holder of the profile photo path.
// *database.Database satisfies it.
type RecordStore interface {
	GetProfilePhotoPath(ctx context.Context, ownerID string) (string, error)
	SetProfilePhotoPath(ctx context.Context, ownerID, path string) error
}

// IdentityProvider mirrors the photo path as a best-effort hint. The local
// path in the record store stays authoritative.
type IdentityProvider interface {
	SetPhotoHint(ctx context.Context, ownerID, path string) error
}

// VariantGenerator produces the durable variant pair from a picked source.
// *assets.Processor satisfies it.
type VariantGenerator interface {
	GenerateVariants(ctx context.Context, sourcePath string) (assets.VariantPair, error)
}

// Confirmer supplies interactive confirmation for destructive operations.
// The facade never confirms on its own.
type Confirmer func(ctx context.Context) (bool, error)
