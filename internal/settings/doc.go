// Package settings supplies the library root and announces edits to it.
//
// A FileProvider reads a small YAML document:
//
//	library_root: /srv/manga
//	poll_interval: 5s
//	force_polling: false
//
// and watches it with fsnotify. Bursts of writes are debounced; after each
// burst the file is re-read and the new root is announced on Changes if it
// differs from the previous one. A document that fails to parse is logged
// and ignored, keeping the last good settings.
package settings
