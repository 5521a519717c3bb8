package assets

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPrimaryBaseName(t *testing.T) {
	ts := time.UnixMilli(1712345678901)
	got := primaryBaseName(ts)
	want := "profile_1712345678901.jpg"
	if got != want {
		t.Errorf("primaryBaseName() = %q, want %q", got, want)
	}
}

func TestThumbnailPathFor(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		want    string
	}{
		{
			name:    "Plain base name",
			primary: "profile_100.jpg",
			want:    "profile_small_100.jpg",
		},
		{
			name:    "With directory",
			primary: "/data/assets/profile_1712345678901.jpg",
			want:    "/data/assets/profile_small_1712345678901.jpg",
		},
		{
			name:    "Empty path",
			primary: "",
			want:    "",
		},
		{
			name:    "Unprefixed base name",
			primary: "/data/assets/photo.jpg",
			want:    "/data/assets/small_photo.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThumbnailPathFor(tt.primary); got != tt.want {
				t.Errorf("ThumbnailPathFor(%q) = %q, want %q", tt.primary, got, tt.want)
			}
		})
	}
}

func TestPrimaryPathFor(t *testing.T) {
	tests := []struct {
		name  string
		thumb string
		want  string
	}{
		{
			name:  "Plain thumbnail",
			thumb: "profile_small_100.jpg",
			want:  "profile_100.jpg",
		},
		{
			name:  "With directory",
			thumb: "/data/assets/profile_small_1712345678901.jpg",
			want:  "/data/assets/profile_1712345678901.jpg",
		},
		{
			name:  "Not a thumbnail returns unchanged",
			thumb: "/data/assets/profile_100.jpg",
			want:  "/data/assets/profile_100.jpg",
		},
		{
			name:  "Empty path",
			thumb: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrimaryPathFor(tt.thumb); got != tt.want {
				t.Errorf("PrimaryPathFor(%q) = %q, want %q", tt.thumb, got, tt.want)
			}
		})
	}
}

func TestNamingRoundTrip(t *testing.T) {
	primary := filepath.Join("/data/assets", primaryBaseName(time.Now()))
	thumb := ThumbnailPathFor(primary)

	if !strings.Contains(filepath.Base(thumb), thumbnailMarker) {
		t.Errorf("Thumbnail path %q missing marker", thumb)
	}
	if !IsThumbnailPath(thumb) {
		t.Errorf("IsThumbnailPath(%q) = false, want true", thumb)
	}
	if IsThumbnailPath(primary) {
		t.Errorf("IsThumbnailPath(%q) = true, want false", primary)
	}

	if got := PrimaryPathFor(thumb); got != primary {
		t.Errorf("Round trip: PrimaryPathFor(ThumbnailPathFor(%q)) = %q", primary, got)
	}
}
