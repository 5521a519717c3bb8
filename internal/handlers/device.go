package handlers

import (
	"context"
	"sync"

	"fintrack/internal/profile"
)

// StagedDevice adapts HTTP uploads to the capture device boundary. The
// handler stages an uploaded file path, then drives the facade; the facade's
// capture or pick call consumes the staged path. Each staged path feeds
// exactly one operation.
type StagedDevice struct {
	mu     sync.Mutex
	staged string
}

// NewStagedDevice creates an empty StagedDevice.
func NewStagedDevice() *StagedDevice {
	return &StagedDevice{}
}

// Stage sets the source path for the next capture or pick.
func (d *StagedDevice) Stage(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staged = path
}

// take consumes the staged path. An empty result means nothing was staged,
// which is reported as a user cancellation.
func (d *StagedDevice) take() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staged == "" {
		return "", profile.ErrUserCancelled
	}
	path := d.staged
	d.staged = ""
	return path, nil
}

// RequestCameraPermission always grants; permissions were settled when the
// client produced the upload.
func (d *StagedDevice) RequestCameraPermission(_ context.Context) error {
	return nil
}

// RequestGalleryPermission always grants.
func (d *StagedDevice) RequestGalleryPermission(_ context.Context) error {
	return nil
}

// Capture returns the staged upload.
func (d *StagedDevice) Capture(_ context.Context) (string, error) {
	return d.take()
}

// PickFromGallery returns the staged upload.
func (d *StagedDevice) PickFromGallery(_ context.Context) (string, error) {
	return d.take()
}
