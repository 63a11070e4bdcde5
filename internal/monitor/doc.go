// Package monitor watches a library root and reports changes as typed
// events.
//
// A Monitor starts Unwatched. Start attaches a native fsnotify watcher to
// every non-hidden directory under the root; if that fails, or polling is
// forced, it falls back to checking the modification times of the root and
// its immediate subdirectories on a fixed interval. Polling only ever emits
// one coarse Changed event for the root.
//
// Events are delivered on a bounded channel. When the consumer falls behind,
// events are dropped rather than blocking the watcher, and a Reset event is
// delivered as soon as there is room again so the consumer can rebuild from
// scratch.
//
// A Monitor watches one root for its whole life. To watch a different root,
// Stop it and create a new one.
package monitor
