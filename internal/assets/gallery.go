package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fintrack/internal/logging"
)

// DirMirror copies primaries into a shared gallery directory. It stands in
// for the device photo library on deployments that export one.
type DirMirror struct {
	dir string
}

// NewDirMirror creates a DirMirror targeting dir.
func NewDirMirror(dir string) *DirMirror {
	return &DirMirror{dir: dir}
}

// Mirror copies the file at path into the gallery directory under its own
// base name, overwriting any previous copy.
func (m *DirMirror) Mirror(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logging.Warn("failed to close gallery source %s: %v", path, err)
		}
	}()

	destPath := filepath.Join(m.dir, filepath.Base(path))
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create gallery file: %w", err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		if closeErr := dest.Close(); closeErr != nil {
			logging.Warn("failed to close gallery file %s: %v", destPath, closeErr)
		}
		return fmt.Errorf("failed to copy to gallery: %w", err)
	}

	return dest.Close()
}
