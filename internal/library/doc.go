// Package library is the entry point for everything else in the module: it
// owns the manifest, the indexer and the change monitor for one library
// root, keeps the current entry list in memory and applies change events to
// it incrementally.
//
// Reads never block on enumeration started by somebody else; each one runs on
// its own goroutine and returns early when its context is cancelled. Results
// are copies and safe to keep.
//
// Change events are consumed by a single update loop:
//   - Removed or Renamed drops the affected entry's manifest row, then
//     rebuilds the entry if its directory still exists or removes it.
//   - Added or Changed rebuilds just the affected entry.
//   - Reset, or any event that does not resolve to a tracked entry, triggers
//     a full reindex. Concurrent reindex requests share one run.
//
// Applied events are republished to subscribers so presentation layers can
// refresh without reloading everything.
package library
