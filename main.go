package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manga-library/internal/filesystem"
	"manga-library/internal/handlers"
	"manga-library/internal/library"
	"manga-library/internal/logging"
	"manga-library/internal/memory"
	"manga-library/internal/metrics"
	"manga-library/internal/middleware"
	"manga-library/internal/settings"
	"manga-library/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	// LIBRARY_DIR and the env intervals only seed the settings file; after the
	// first run the file is authoritative and may be edited live.
	provider, err := settings.NewFileProvider(config.SettingsFile, settings.Settings{
		LibraryRoot:  config.LibraryDir,
		PollInterval: config.PollInterval,
		ForcePolling: config.ForcePolling,
	})
	if err != nil {
		startup.LogFatal("Failed to load settings: %v", err)
	}
	current := provider.Settings()

	pollInterval := config.PollInterval
	if current.PollInterval > 0 {
		pollInterval = current.PollInterval
	}
	forcePolling := config.ForcePolling || current.ForcePolling

	volumes := map[string]string{"data": config.DataDir}
	if current.LibraryRoot != "" {
		volumes["library"] = current.LibraryRoot
	}
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	startup.LogLibraryInit(current.LibraryRoot, forcePolling)
	svc := library.New(library.Config{
		Root:          current.LibraryRoot,
		ManifestPath:  config.ManifestPath,
		PollInterval:  pollInterval,
		FlushInterval: config.FlushInterval,
		ForcePolling:  forcePolling,
		Gate:          memMonitor,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The initial index runs in the background; /readyz reports when it lands.
	go func() {
		indexStart := time.Now()
		err := svc.Start(ctx)
		startup.LogLibraryStarted(svc.GetStats().Entries, svc.MonitorMode().String(), time.Since(indexStart), err)

		if err := provider.Start(ctx); err != nil {
			logging.Warn("Settings file will not be watched: %v", err)
		}
		if err := svc.Run(ctx, provider); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Settings loop stopped: %v", err)
		}
	}()

	collector := metrics.NewCollector(svc, 30*time.Second)
	collector.Start()

	h := handlers.New(svc)
	router := mux.NewRouter()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.Register(router)

	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, cancel, svc, provider, collector, memMonitor)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func handleShutdown(
	srv *http.Server,
	cancel context.CancelFunc,
	svc *library.Service,
	provider *settings.FileProvider,
	collector *metrics.Collector,
	memMonitor *memory.Monitor,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping settings watcher")
	cancel()
	if err := provider.Close(); err != nil {
		logging.Warn("Settings watcher close error: %v", err)
	}
	startup.LogShutdownStepComplete("Settings watcher stopped")

	startup.LogShutdownStep("Closing library and flushing manifest")
	if err := svc.Close(); err != nil {
		logging.Warn("Library close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Library closed, manifest flushed")
	}

	collector.Stop()
	memMonitor.Stop()

	startup.LogShutdownComplete()
}
