// Package manifest persists the library index between runs.
//
// A Store maps each tracked entry directory to the directory's last-write
// time and the chapter count computed for it. A row is only a cache hit
// while the stored write time matches the directory on disk, so touching a
// directory invalidates its row without any explicit bookkeeping. Changes
// deeper in the tree that do not update the tracked directory's own mtime
// are not detected until the next full reset.
//
// The store is held in memory and written back as a single JSON document
// when dirty, either explicitly via SaveIfDirty or periodically via
// RunFlusher. A missing or corrupt file yields an empty store; the manifest
// is a cache and can always be rebuilt.
//
// Paths are compared case-insensitively. Two directories whose names differ
// only in case share one row.
package manifest
