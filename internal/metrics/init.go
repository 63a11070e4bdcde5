package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	volumes := []string{"library", "data", "unknown"}
	fsOps := []string{"stat", "open", "readdir", "read"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, result := range []string{"hit", "miss"} {
		ManifestLookupsTotal.WithLabelValues(result)
	}
	for _, status := range []string{"success", "error"} {
		ManifestSavesTotal.WithLabelValues(status)
	}

	for _, format := range []string{"zip", "rar", "7z"} {
		ArchiveOpensTotal.WithLabelValues(format, "success")
		ArchiveOpensTotal.WithLabelValues(format, "error")
	}
	for _, reason := range []string{"traversal", "duplicate", "not_image"} {
		ArchiveEntriesRejected.WithLabelValues(reason)
	}

	for _, kind := range []string{"reset", "added", "removed", "changed", "renamed"} {
		WatcherEventsTotal.WithLabelValues(kind)
	}
	for _, action := range []string{"upsert", "remove", "reindex"} {
		IndexerIncrementalUpdates.WithLabelValues(action)
	}

	SetMonitorMode("unwatched")
}
