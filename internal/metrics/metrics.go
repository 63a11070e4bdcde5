package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mangalib_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_indexer_runs_total",
			Help: "Total number of full library index runs",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_indexer_last_run_timestamp",
			Help: "Timestamp of the last full index run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_indexer_last_run_duration_seconds",
			Help: "Duration of the last full index run in seconds",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_indexer_running",
			Help: "Number of full index runs currently in progress",
		},
	)

	IndexerEntriesBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_indexer_entries_built_total",
			Help: "Total number of entries produced by the indexer",
		},
	)

	IndexerIncrementalUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_indexer_incremental_updates_total",
			Help: "Incremental index updates applied from change events",
		},
		[]string{"action"}, // "upsert", "remove", "reindex"
	)
)

// Directory scan metrics
var (
	ScanDirectoriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_scan_directories_total",
			Help: "Total number of directories enumerated (scan cache misses)",
		},
	)

	ScanErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_scan_errors_total",
			Help: "Directories that could not be enumerated and were treated as empty",
		},
	)
)

// Manifest metrics
var (
	ManifestLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_manifest_lookups_total",
			Help: "Manifest chapter-count lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	ManifestSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_manifest_saves_total",
			Help: "Manifest writes by status",
		},
		[]string{"status"}, // "success", "error"
	)

	ManifestRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_manifest_rows",
			Help: "Number of rows in the manifest",
		},
	)

	ManifestPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_manifest_pruned_total",
			Help: "Manifest rows removed by pruning",
		},
	)
)

// Archive metrics
var (
	ArchiveOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_archive_opens_total",
			Help: "Archive opens by container format and status",
		},
		[]string{"format", "status"},
	)

	ArchiveEntriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_archive_entries_rejected_total",
			Help: "Archive entries excluded from page listings",
		},
		[]string{"reason"}, // "traversal", "duplicate", "not_image"
	)

	ArchiveEntryReadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mangalib_archive_entry_read_duration_seconds",
			Help:    "Time to open an archive and materialize one entry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ArchiveEntryBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mangalib_archive_entry_bytes",
			Help:    "Decompressed size of archive entries served",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
	)
)

// Change monitor metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_watcher_events_total",
			Help: "Change events emitted by the monitor",
		},
		[]string{"kind"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatcherEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_watcher_events_dropped_total",
			Help: "Events dropped because the consumer fell behind (collapsed into a reset)",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_watched_directories",
			Help: "Number of directories registered with the native watcher",
		},
	)

	MonitorMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mangalib_monitor_mode",
			Help: "Current change monitor mode (1 for the active mode)",
		},
		[]string{"mode"}, // "unwatched", "native", "polling"
	)

	PollChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_poll_checks_total",
			Help: "Total number of polling change checks",
		},
	)

	PollChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_poll_changes_detected_total",
			Help: "Polling checks that found the root modified",
		},
	)
)

// Library gauges, refreshed by the Collector
var (
	LibraryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_library_entries",
			Help: "Number of entries currently in the index",
		},
	)

	LibraryChapters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_library_chapters",
			Help: "Sum of chapter counts over all entries",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mangalib_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_filesystem_retry_attempts_total",
			Help: "Retries issued after ESTALE errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mangalib_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried operation, including backoff",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangalib_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_memory_usage_ratio",
			Help: "Heap allocation as a fraction of GOMEMLIMIT",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangalib_memory_paused",
			Help: "1 while entry builds are paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangalib_memory_gc_pauses_total",
			Help: "Times memory pressure paused entry builds",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mangalib_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetMonitorMode marks mode as the active monitor mode.
func SetMonitorMode(mode string) {
	for _, m := range []string{"unwatched", "native", "polling"} {
		value := 0.0
		if m == mode {
			value = 1
		}
		MonitorMode.WithLabelValues(m).Set(value)
	}
}
