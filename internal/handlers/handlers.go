package handlers

import (
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/collector"
	"fintrack/internal/database"
	"fintrack/internal/profile"
	"fintrack/internal/settings"
	"fintrack/internal/startup"
)

type Handlers struct {
	db        *database.Database
	facade    *profile.Facade
	collector *collector.Collector
	settings  *settings.Store
	cache     *cache.Cache
	device    *StagedDevice
	ownerID   string
	startedAt time.Time
}

func New(db *database.Database, facade *profile.Facade, coll *collector.Collector, store *settings.Store, scratch *cache.Cache, device *StagedDevice, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		facade:    facade,
		collector: coll,
		settings:  store,
		cache:     scratch,
		device:    device,
		ownerID:   config.OwnerID,
		startedAt: time.Now(),
	}
}
