/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Manga libraries frequently live on network shares, so every read the indexer,
archive codec and manifest perform goes through this package:

	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	f, err := filesystem.OpenWithRetry(archivePath, filesystem.DefaultRetryConfig())

# Retry Behavior

Only ESTALE (errno 116 on Linux) triggers retries, with exponential backoff:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors (ENOENT, EACCES, ...) fail immediately, so callers can treat
a vanished or unreadable directory as a local, skippable condition.

# Metrics

Operations are reported to the Observer installed with SetObserver, labelled by
the volume resolved through the VolumeResolver installed with
SetDefaultVolumeResolver ("library", "data" or "unknown").
*/
package filesystem
