package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"

	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
	"manga-library/internal/metrics"
)

// DefaultFileName is the manifest file name inside the data directory.
const DefaultFileName = "library-manifest.json"

// DefaultFlushInterval is used by RunFlusher for non-positive intervals.
const DefaultFlushInterval = 30 * time.Second

// Row is the persisted state of one tracked directory.
type Row struct {
	DirectoryWriteTimeUtcTicks int64
	ChapterCount               *int
	EntryLastModifiedUtcTicks  *int64
}

// WriteTime returns the recorded directory write time.
func (r Row) WriteTime() time.Time {
	return FromTicks(r.DirectoryWriteTimeUtcTicks)
}

// EntryModified returns the recorded entry modification time, or the zero
// time when none was stored.
func (r Row) EntryModified() time.Time {
	if r.EntryLastModifiedUtcTicks == nil {
		return time.Time{}
	}
	return FromTicks(*r.EntryLastModifiedUtcTicks)
}

type document struct {
	Entries map[string]Row `json:"Entries"`
}

// record keeps the original path spelling next to the row; the map key is
// the case-folded path.
type record struct {
	path string
	row  Row
}

// Store is a case-insensitive path to Row map persisted as one JSON file.
// It is safe for concurrent use.
type Store struct {
	path string

	mu   sync.Mutex
	rows map[string]record

	dirty  atomic.Bool
	saveMu sync.Mutex
}

func foldPath(p string) string {
	return cases.Fold().String(filepath.Clean(p))
}

// isWithin reports whether path equals dir or lies below it. Both arguments
// must already be folded and cleaned.
func isWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// New returns an empty store that saves to path.
func New(path string) *Store {
	return &Store{
		path: path,
		rows: make(map[string]record),
	}
}

// Load reads the manifest at path. A missing or unreadable document is not an
// error; the returned store is simply empty.
func Load(path string) *Store {
	s := New(path)

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Info("No library manifest at %s, starting empty", path)
		} else {
			logging.Warn("Failed to read library manifest %s: %v", path, err)
		}
		return s
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn("Discarding corrupt library manifest %s: %v", path, err)
		return s
	}

	for p, row := range doc.Entries {
		if p == "" {
			continue
		}
		s.rows[foldPath(p)] = record{path: filepath.Clean(p), row: row}
	}
	metrics.ManifestRows.Set(float64(len(s.rows)))
	logging.Info("Loaded library manifest with %d entries from %s", len(s.rows), path)
	return s
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the row for dir if it is still valid for a directory last
// written at writeTime and carries a chapter count.
func (s *Store) Lookup(dir string, writeTime time.Time) (Row, bool) {
	s.mu.Lock()
	rec, ok := s.rows[foldPath(dir)]
	s.mu.Unlock()

	switch {
	case !ok:
		metrics.ManifestLookupsTotal.WithLabelValues("miss").Inc()
		return Row{}, false
	case rec.row.DirectoryWriteTimeUtcTicks != ToTicks(writeTime) || rec.row.ChapterCount == nil:
		metrics.ManifestLookupsTotal.WithLabelValues("stale").Inc()
		return rec.row, false
	default:
		metrics.ManifestLookupsTotal.WithLabelValues("hit").Inc()
		return rec.row, true
	}
}

// TryGet stats dir and returns its row if it is a valid cache hit.
func (s *Store) TryGet(dir string) (Row, bool) {
	mtime, err := filesystem.ModTime(dir)
	if err != nil {
		metrics.ManifestLookupsTotal.WithLabelValues("miss").Inc()
		return Row{}, false
	}
	return s.Lookup(dir, mtime)
}

// Update records a computed chapter count for dir.
func (s *Store) Update(dir string, writeTime time.Time, chapterCount int, entryModified time.Time) {
	count := chapterCount
	row := Row{
		DirectoryWriteTimeUtcTicks: ToTicks(writeTime),
		ChapterCount:               &count,
	}
	if !entryModified.IsZero() {
		ticks := ToTicks(entryModified)
		row.EntryLastModifiedUtcTicks = &ticks
	}

	key := foldPath(dir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.rows[key]; ok && rowsEqual(old.row, row) {
		return
	}
	s.rows[key] = record{path: filepath.Clean(dir), row: row}
	s.dirty.Store(true)
	metrics.ManifestRows.Set(float64(len(s.rows)))
}

func rowsEqual(a, b Row) bool {
	if a.DirectoryWriteTimeUtcTicks != b.DirectoryWriteTimeUtcTicks {
		return false
	}
	if (a.ChapterCount == nil) != (b.ChapterCount == nil) ||
		(a.ChapterCount != nil && *a.ChapterCount != *b.ChapterCount) {
		return false
	}
	if (a.EntryLastModifiedUtcTicks == nil) != (b.EntryLastModifiedUtcTicks == nil) ||
		(a.EntryLastModifiedUtcTicks != nil && *a.EntryLastModifiedUtcTicks != *b.EntryLastModifiedUtcTicks) {
		return false
	}
	return true
}

// Remove deletes the row for dir. It reports whether a row existed.
func (s *Store) Remove(dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := foldPath(dir)
	if _, ok := s.rows[key]; !ok {
		return false
	}
	delete(s.rows, key)
	s.dirty.Store(true)
	metrics.ManifestRows.Set(float64(len(s.rows)))
	return true
}

// Prune removes every row at or below root whose directory no longer exists
// or whose path is not in active. A nil active set only checks existence.
// It returns the number of rows removed.
func (s *Store) Prune(root string, active map[string]struct{}) int {
	foldedRoot := foldPath(root)

	var keep map[string]struct{}
	if active != nil {
		keep = make(map[string]struct{}, len(active))
		for p := range active {
			keep[foldPath(p)] = struct{}{}
		}
	}

	// Snapshot candidates so the stat calls run without the lock.
	s.mu.Lock()
	candidates := make(map[string]string)
	for key, rec := range s.rows {
		if isWithin(key, foldedRoot) {
			candidates[key] = rec.path
		}
	}
	s.mu.Unlock()

	var stale []string
	for key, p := range candidates {
		if keep != nil {
			if _, ok := keep[key]; !ok {
				stale = append(stale, key)
				continue
			}
		}
		if _, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig()); err != nil {
			stale = append(stale, key)
		}
	}

	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for _, key := range stale {
		if _, ok := s.rows[key]; ok {
			delete(s.rows, key)
			removed++
		}
	}
	if removed > 0 {
		s.dirty.Store(true)
	}
	metrics.ManifestRows.Set(float64(len(s.rows)))
	s.mu.Unlock()

	metrics.ManifestPrunedTotal.Add(float64(removed))
	logging.Debug("Pruned %d manifest rows under %s", removed, root)
	return removed
}

// FindEntryPathForChange maps a changed path to the tracked directory that
// contains it, choosing the deepest match on a path-segment boundary.
func (s *Store) FindEntryPathForChange(fullPath string) (string, bool) {
	target := foldPath(fullPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	best, bestLen := "", -1
	for key, rec := range s.rows {
		if len(key) > bestLen && isWithin(target, key) {
			best, bestLen = rec.path, len(key)
		}
	}
	return best, bestLen >= 0
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Paths returns the tracked directories in lexical order.
func (s *Store) Paths() []string {
	s.mu.Lock()
	paths := make([]string, 0, len(s.rows))
	for _, rec := range s.rows {
		paths = append(paths, rec.path)
	}
	s.mu.Unlock()

	sort.Strings(paths)
	return paths
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

// SaveIfDirty writes the whole document when there are unsaved changes. It
// is a no-op otherwise.
func (s *Store) SaveIfDirty() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if !s.dirty.Load() {
		return nil
	}

	s.mu.Lock()
	doc := document{Entries: make(map[string]Row, len(s.rows))}
	for _, rec := range s.rows {
		doc.Entries[rec.path] = rec.row
	}
	// Cleared under the lock so updates racing the write re-mark the store.
	s.dirty.Store(false)
	s.mu.Unlock()

	if err := s.write(doc); err != nil {
		s.dirty.Store(true)
		metrics.ManifestSavesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.ManifestSavesTotal.WithLabelValues("success").Inc()
	logging.Debug("Saved library manifest with %d entries to %s", len(doc.Entries), s.path)
	return nil
}

func (s *Store) write(doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// RunFlusher saves the store every interval until ctx is done, then saves
// one final time and returns that result.
func (s *Store) RunFlusher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveIfDirty(); err != nil {
				logging.Warn("Periodic manifest flush failed: %v", err)
			}
		case <-ctx.Done():
			return s.SaveIfDirty()
		}
	}
}
