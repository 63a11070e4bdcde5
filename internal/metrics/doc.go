// Package metrics provides Prometheus instrumentation for the manga library.
//
// All metrics are registered with promauto at package initialization and are
// prefixed with "mangalib_".
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests for the API.
//   - Indexer: full runs, duration, incremental updates applied from change events.
//   - Scan: directories enumerated and enumeration failures.
//   - Manifest: cache hit/miss ratio, saves, row count, pruned rows.
//   - Archive: opens per format, rejected entries (path traversal, duplicates),
//     per-entry read time and size.
//   - Monitor: watcher events by kind, watcher errors, dropped events, watched
//     directories, active mode, polling checks.
//   - Filesystem: per-volume operation latency and ESTALE retry behaviour,
//     recorded through the filesystem.Observer bridge in observer.go.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	collector := metrics.NewCollector(service, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
