// Package assets turns picked or captured photos into durable, size-bounded
// local variants: a primary image and an independently generated thumbnail.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	primaryPrefix   = "profile_"
	thumbnailMarker = "small_"
	variantExt      = ".jpg"
)

// primaryBaseName returns the shared timestamp-derived base name for a
// generation event, e.g. "profile_1712345678901.jpg".
func primaryBaseName(t time.Time) string {
	return fmt.Sprintf("%s%d%s", primaryPrefix, t.UnixMilli(), variantExt)
}

// ThumbnailPathFor derives the thumbnail path from a primary path without
// any I/O. The transform inserts the "small_" marker after the "profile_"
// prefix: profile_100.jpg -> profile_small_100.jpg. It is part of the
// public contract; GetOptimizedPath and Refresh rely on it.
func ThumbnailPathFor(primaryPath string) string {
	if primaryPath == "" {
		return ""
	}
	dir, base := filepath.Split(primaryPath)
	if rest, ok := strings.CutPrefix(base, primaryPrefix); ok {
		return dir + primaryPrefix + thumbnailMarker + rest
	}
	return dir + thumbnailMarker + base
}

// PrimaryPathFor is the inverse of ThumbnailPathFor. Passing a path that is
// not a thumbnail path returns it unchanged.
func PrimaryPathFor(thumbnailPath string) string {
	if thumbnailPath == "" {
		return ""
	}
	dir, base := filepath.Split(thumbnailPath)
	if rest, ok := strings.CutPrefix(base, primaryPrefix+thumbnailMarker); ok {
		return dir + primaryPrefix + rest
	}
	if rest, ok := strings.CutPrefix(base, thumbnailMarker); ok {
		return dir + rest
	}
	return thumbnailPath
}

// IsThumbnailPath reports whether path names a thumbnail variant.
func IsThumbnailPath(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, primaryPrefix+thumbnailMarker) ||
		strings.HasPrefix(base, thumbnailMarker)
}
