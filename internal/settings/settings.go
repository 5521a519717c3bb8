// Package settings holds the user-configurable image handling knobs with
// persisted defaults.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/logging"
)

// ErrInvalid marks a rejected settings value.
var ErrInvalid = errors.New("invalid settings")

// ImageSettings are the user-configurable image handling knobs.
type ImageSettings struct {
	QualityPercent      int  `json:"qualityPercent"`
	MaxDimensionPx      int  `json:"maxDimensionPx"`
	AutoSaveToGallery   bool `json:"autoSaveToGallery"`
	AutoCompress        bool `json:"autoCompress"`
	CacheEnabled        bool `json:"cacheEnabled"`
	AutoCleanupEnabled  bool `json:"autoCleanupEnabled"`
	CleanupIntervalDays int  `json:"cleanupIntervalDays"`
}

// Defaults returns the fixed first-run settings.
func Defaults() ImageSettings {
	return ImageSettings{
		QualityPercent:      80,
		MaxDimensionPx:      1024,
		AutoSaveToGallery:   false,
		AutoCompress:        true,
		CacheEnabled:        true,
		AutoCleanupEnabled:  true,
		CleanupIntervalDays: 7,
	}
}

// Update carries a partial settings change; nil fields are left untouched.
type Update struct {
	QualityPercent      *int  `json:"qualityPercent,omitempty"`
	MaxDimensionPx      *int  `json:"maxDimensionPx,omitempty"`
	AutoSaveToGallery   *bool `json:"autoSaveToGallery,omitempty"`
	AutoCompress        *bool `json:"autoCompress,omitempty"`
	CacheEnabled        *bool `json:"cacheEnabled,omitempty"`
	AutoCleanupEnabled  *bool `json:"autoCleanupEnabled,omitempty"`
	CleanupIntervalDays *int  `json:"cleanupIntervalDays,omitempty"`
}

// Validate rejects out-of-range values instead of clamping them, so a
// misconfigured client fails fast rather than silently degrading images.
func (s ImageSettings) Validate() error {
	if s.QualityPercent < 1 || s.QualityPercent > 100 {
		return fmt.Errorf("%w: qualityPercent %d out of range [1, 100]", ErrInvalid, s.QualityPercent)
	}
	if s.MaxDimensionPx < 16 || s.MaxDimensionPx > 8192 {
		return fmt.Errorf("%w: maxDimensionPx %d out of range [16, 8192]", ErrInvalid, s.MaxDimensionPx)
	}
	if s.CleanupIntervalDays < 0 {
		return fmt.Errorf("%w: cleanupIntervalDays %d must not be negative", ErrInvalid, s.CleanupIntervalDays)
	}
	return nil
}

// Persistence is the storage backend for settings.
// The bool result of LoadImageSettings reports whether a row existed.
type Persistence interface {
	LoadImageSettings(ctx context.Context) (ImageSettings, bool, error)
	SaveImageSettings(ctx context.Context, s ImageSettings) error
}

// Subscriber is notified after every successful settings change.
type Subscriber func(ImageSettings)

// Store caches the current settings in memory and persists changes.
type Store struct {
	persistence Persistence

	mu          sync.RWMutex
	current     ImageSettings
	loaded      bool
	subscribers []Subscriber
}

// NewStore creates a settings store backed by the given persistence.
func NewStore(persistence Persistence) *Store {
	return &Store{persistence: persistence}
}

// Load returns the current settings, initializing and persisting the
// defaults on first run. Repeated calls after first-run init are cheap.
func (s *Store) Load(ctx context.Context) (ImageSettings, error) {
	s.mu.RLock()
	if s.loaded {
		current := s.current
		s.mu.RUnlock()
		return current, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.current, nil
	}

	stored, found, err := s.persistence.LoadImageSettings(ctx)
	if err != nil {
		return ImageSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	if !found {
		stored = Defaults()
		if err := s.persistence.SaveImageSettings(ctx, stored); err != nil {
			return ImageSettings{}, fmt.Errorf("failed to persist default settings: %w", err)
		}
		logging.Info("Settings initialized with defaults")
	}

	s.current = stored
	s.loaded = true
	return s.current, nil
}

// Current returns the cached settings without touching storage. Callers
// must have ensured Load ran at least once; before that it returns the
// defaults.
func (s *Store) Current() ImageSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Defaults()
	}
	return s.current
}

// ApplyUpdate merges a partial update, validates, persists and notifies
// subscribers. Invalid updates change nothing.
func (s *Store) ApplyUpdate(ctx context.Context, u Update) (ImageSettings, error) {
	if _, err := s.Load(ctx); err != nil {
		return ImageSettings{}, err
	}

	s.mu.Lock()
	merged := s.current
	if u.QualityPercent != nil {
		merged.QualityPercent = *u.QualityPercent
	}
	if u.MaxDimensionPx != nil {
		merged.MaxDimensionPx = *u.MaxDimensionPx
	}
	if u.AutoSaveToGallery != nil {
		merged.AutoSaveToGallery = *u.AutoSaveToGallery
	}
	if u.AutoCompress != nil {
		merged.AutoCompress = *u.AutoCompress
	}
	if u.CacheEnabled != nil {
		merged.CacheEnabled = *u.CacheEnabled
	}
	if u.AutoCleanupEnabled != nil {
		merged.AutoCleanupEnabled = *u.AutoCleanupEnabled
	}
	if u.CleanupIntervalDays != nil {
		merged.CleanupIntervalDays = *u.CleanupIntervalDays
	}

	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		return ImageSettings{}, err
	}

	if err := s.persistence.SaveImageSettings(ctx, merged); err != nil {
		s.mu.Unlock()
		return ImageSettings{}, fmt.Errorf("failed to persist settings: %w", err)
	}

	s.current = merged
	subscribers := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	s.notify(merged, subscribers)
	return merged, nil
}

// Reset restores the fixed defaults, persists them and notifies subscribers.
func (s *Store) Reset(ctx context.Context) (ImageSettings, error) {
	defaults := Defaults()

	s.mu.Lock()
	if err := s.persistence.SaveImageSettings(ctx, defaults); err != nil {
		s.mu.Unlock()
		return ImageSettings{}, fmt.Errorf("failed to persist default settings: %w", err)
	}
	s.current = defaults
	s.loaded = true
	subscribers := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	s.notify(defaults, subscribers)
	return defaults, nil
}

// Subscribe registers a callback invoked after every settings change.
func (s *Store) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

func (s *Store) notify(settings ImageSettings, subscribers []Subscriber) {
	for _, sub := range subscribers {
		sub(settings)
	}
	logging.Debug("Settings updated: quality=%d maxDim=%d gallery=%v compress=%v cache=%v cleanup=%v interval=%dd",
		settings.QualityPercent, settings.MaxDimensionPx, settings.AutoSaveToGallery,
		settings.AutoCompress, settings.CacheEnabled, settings.AutoCleanupEnabled,
		settings.CleanupIntervalDays)
}
