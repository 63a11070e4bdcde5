// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - LIBRARY_DIR: Library root (default: none; taken from the settings file)
//   - DATA_DIR: Directory holding the manifest and settings (default: /data)
//   - SETTINGS_FILE: YAML settings file (default: $DATA_DIR/settings.yaml)
//   - PORT: HTTP server port (default: 8080)
//   - POLL_INTERVAL: Polling interval when native watching is unavailable (default: 5s)
//   - FLUSH_INTERVAL: Manifest flush interval (default: 30s)
//   - FORCE_POLLING: Skip native watching entirely (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - INDEX_WORKERS: Pin the number of concurrent entry builds
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// DATA_DIR is created if missing and must be writable. A missing LIBRARY_DIR
// only logs a warning.
//
// # Build Information
//
// Version details are injected at build time:
//
//	go build -ldflags "-X manga-library/internal/startup.Version=1.0.0 \
//	  -X manga-library/internal/startup.Commit=$(git rev-parse HEAD)"
//
// # Lifecycle Logging
//
// The Log* functions print the sectioned startup and shutdown output used by
// main.
package startup
