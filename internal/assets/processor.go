package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/logging"
	"fintrack/internal/metrics"
	"fintrack/internal/settings"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// Thumbnail variants are a fixed 100px square regardless of settings.
	thumbnailSizePx  = 100
	thumbnailQuality = 75

	// Encode quality for primaries when auto-compression is off.
	passthroughQuality = 95
)

// ErrProcessing indicates the source could not be read or a variant could
// not be encoded or written.
var ErrProcessing = errors.New("asset processing failed")

// SettingsSource supplies the current image settings. *settings.Store
// satisfies it.
type SettingsSource interface {
	Current() settings.ImageSettings
}

// GalleryMirror copies a generated primary into the shared photo library.
// Mirroring is best effort; failures never fail variant generation.
type GalleryMirror interface {
	Mirror(ctx context.Context, path string) error
}

// VariantPair is the result of one generation event. Both paths share a
// timestamp base name so either can be derived from the other.
type VariantPair struct {
	PrimaryPath   string `json:"primaryPath"`
	ThumbnailPath string `json:"thumbnailPath"`
}

// Processor writes durable image variants into the asset directory.
type Processor struct {
	assetDir string
	settings SettingsSource
	gallery  GalleryMirror
	useVips  bool
}

// NewProcessor creates a Processor. gallery may be nil when no shared
// photo library is configured.
func NewProcessor(assetDir string, settings SettingsSource, gallery GalleryMirror) *Processor {
	return &Processor{
		assetDir: assetDir,
		settings: settings,
		gallery:  gallery,
		useVips:  IsVipsAvailable(),
	}
}

// GenerateVariants produces the primary and thumbnail variants for a source
// image. The previous pair for the slot is never touched here; retiring it
// is the caller's job so a failed generation cannot lose the current photo.
func (p *Processor) GenerateVariants(ctx context.Context, sourcePath string) (VariantPair, error) {
	cfg := p.settings.Current()

	src, err := p.loadSource(sourcePath, cfg.MaxDimensionPx)
	if err != nil {
		return VariantPair{}, fmt.Errorf("%w: cannot read source %s: %v", ErrProcessing, sourcePath, err)
	}

	pair := VariantPair{}
	pair.PrimaryPath = p.nextPrimaryPath()
	pair.ThumbnailPath = ThumbnailPathFor(pair.PrimaryPath)

	if err := p.writePrimary(pair.PrimaryPath, src, cfg); err != nil {
		metrics.VariantGenerationsTotal.WithLabelValues("primary", "error").Inc()
		return VariantPair{}, err
	}
	metrics.VariantGenerationsTotal.WithLabelValues("primary", "success").Inc()

	// The thumbnail is generated from the source, not downscaled from the
	// primary, to avoid compounding compression artifacts.
	if err := p.writeThumbnail(pair.ThumbnailPath, src); err != nil {
		metrics.VariantGenerationsTotal.WithLabelValues("thumbnail", "error").Inc()
		// Remove the half-written pair; a primary without its thumbnail is
		// an inconsistent state.
		if rmErr := DeleteIfExists(pair.PrimaryPath); rmErr != nil {
			logging.Warn("failed to remove partial primary %s: %v", pair.PrimaryPath, rmErr)
		}
		return VariantPair{}, err
	}
	metrics.VariantGenerationsTotal.WithLabelValues("thumbnail", "success").Inc()

	if cfg.AutoSaveToGallery {
		p.mirrorToGallery(ctx, pair.PrimaryPath)
	}

	logging.Debug("Generated variants: %s, %s", pair.PrimaryPath, pair.ThumbnailPath)
	return pair, nil
}

// nextPrimaryPath picks an unused timestamp-derived path. Two generations
// inside the same millisecond would otherwise collide and the retirement of
// the old pair would destroy the new one.
func (p *Processor) nextPrimaryPath() string {
	ts := time.Now()
	for {
		path := filepath.Join(p.assetDir, primaryBaseName(ts))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		ts = ts.Add(time.Millisecond)
	}
}

// loadSource decodes the source image, constrained to maxDimension on the
// longer side. Uses the vips fast path when available, with imaging as the
// fallback decoder chain.
func (p *Processor) loadSource(path string, maxDimension int) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	if p.useVips {
		img, err := loadImageWithVips(path, maxDimension, maxDimension)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips load failed for %s: %v, falling back to imaging", path, err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		logging.Debug("imaging.Open failed for %s: %v, trying plain decode", path, err)
		img, err = decodeImageFile(path)
		if err != nil {
			return nil, err
		}
	}

	return constrain(img, maxDimension), nil
}

func decodeImageFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close source file %s: %v", path, err)
		}
	}()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	logging.Debug("Decoded image format: %s for %s", format, path)
	return img, nil
}

// constrain downscales img so neither dimension exceeds maxDimension.
func constrain(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxDimension && bounds.Dy() <= maxDimension {
		return img
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
}

func (p *Processor) writePrimary(path string, src image.Image, cfg settings.ImageSettings) error {
	start := time.Now()
	defer func() {
		metrics.VariantGenerationDuration.WithLabelValues("primary").Observe(time.Since(start).Seconds())
	}()

	img := src
	quality := passthroughQuality
	if cfg.AutoCompress {
		side := squareSide(src, cfg.MaxDimensionPx)
		img = imaging.Fill(src, side, side, imaging.Center, imaging.Lanczos)
		quality = cfg.QualityPercent
	}

	return encodeJPEG(path, img, quality)
}

func (p *Processor) writeThumbnail(path string, src image.Image) error {
	start := time.Now()
	defer func() {
		metrics.VariantGenerationDuration.WithLabelValues("thumbnail").Observe(time.Since(start).Seconds())
	}()

	thumb := imaging.Fill(src, thumbnailSizePx, thumbnailSizePx, imaging.Center, imaging.Lanczos)
	return encodeJPEG(path, thumb, thumbnailQuality)
}

// squareSide picks the crop target: the configured maximum, shrunk to the
// source's shorter side so small images are never upscaled.
func squareSide(img image.Image, maxDimension int) int {
	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	if side > maxDimension {
		side = maxDimension
	}
	if side < 1 {
		side = 1
	}
	return side
}

func encodeJPEG(path string, img image.Image, quality int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("%w: encode failed for %s: %v", ErrProcessing, path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write failed for %s: %v", ErrProcessing, path, err)
	}
	return nil
}

func (p *Processor) mirrorToGallery(ctx context.Context, path string) {
	if p.gallery == nil {
		logging.Debug("Gallery mirror requested but no gallery configured")
		return
	}
	if err := p.gallery.Mirror(ctx, path); err != nil {
		metrics.GalleryMirrorsTotal.WithLabelValues("error").Inc()
		logging.Warn("failed to mirror %s to gallery: %v", path, err)
		return
	}
	metrics.GalleryMirrorsTotal.WithLabelValues("success").Inc()
	logging.Debug("Mirrored %s to gallery", path)
}

// DeleteIfExists removes a file, treating a missing file as success.
// All variant deletion in the system goes through this so deletes stay
// idempotent.
func DeleteIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
