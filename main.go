package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/assets"
	"fintrack/internal/cache"
	"fintrack/internal/collector"
	"fintrack/internal/database"
	"fintrack/internal/handlers"
	"fintrack/internal/logging"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware"
	"fintrack/internal/profile"
	"fintrack/internal/settings"
	"fintrack/internal/startup"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Optional .env for local development; the environment wins over the file.
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env")
	}

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Settings store, initialized so Current() reflects persisted values.
	store := settings.NewStore(db)
	cfg, err := store.Load(ctx)
	if err != nil {
		startup.LogFatal("Failed to load settings: %v", err)
	}

	// libvips is a fast path, not a requirement.
	if err := assets.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go image processing: %v", err)
	}
	defer assets.ShutdownVips()

	// Ephemeral cache
	scratch := cache.New(config.CacheDir, config.CacheAvailable && cfg.CacheEnabled)

	// Asset processor, with gallery mirroring when a gallery dir is configured.
	var gallery assets.GalleryMirror
	if config.GalleryAvailable {
		gallery = assets.NewDirMirror(config.GalleryDir)
	}
	processor := assets.NewProcessor(config.AssetDir, store, gallery)

	// Orphan collector and the photo lifecycle facade. The facade is also
	// the collector's slot source, wired in after construction.
	coll := collector.New(config.AssetDir, db, db, nil, store, scratch)
	device := handlers.NewStagedDevice()
	facade := profile.New(config.OwnerID, processor, device, db, nil)
	coll.SetSlotSource(facade)

	// Recover the photo slot from the record store before serving.
	if _, err := facade.Refresh(ctx); err != nil {
		logging.Warn("Failed to restore photo slot: %v", err)
	}

	// Initialize handlers
	h := handlers.New(db, facade, coll, store, scratch, device, config)

	// Setup router
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	var handler http.Handler = router
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	// Periodic cleanup scheduling. The collector itself decides whether a
	// pass is due based on the persisted last-run marker.
	cleanupStop := make(chan struct{})
	go runCleanupScheduler(coll, config.OwnerID, config.CleanupInterval, cleanupStop)

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, cleanupStop)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func runCleanupScheduler(coll *collector.Collector, ownerID string, interval time.Duration, stop <-chan struct{}) {
	// One check shortly after startup, then on the interval.
	timer := time.NewTimer(time.Minute)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		triggered, err := coll.ScheduleCleanup(context.Background(), ownerID)
		if err != nil {
			logging.Error("Cleanup scheduling failed: %v", err)
		} else if triggered {
			logging.Debug("Cleanup pass triggered by scheduler")
		}

		timer.Reset(interval)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, cleanupStop chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping cleanup scheduler")
	close(cleanupStop)
	startup.LogShutdownStepComplete("Cleanup scheduler stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
