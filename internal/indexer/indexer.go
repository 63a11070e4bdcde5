package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"manga-library/internal/archive"
	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
	"manga-library/internal/manifest"
	"manga-library/internal/metrics"
	"manga-library/internal/naturalsort"
	"manga-library/internal/workers"
)

// maxWorkers caps concurrent entry builds; enumeration on network shares
// degrades quickly past this.
const maxWorkers = 16

// Options configures an Indexer.
type Options struct {
	// Workers is the number of entries built concurrently (0 = auto).
	Workers int

	// Gate, when set, is consulted before each entry build.
	Gate Gate
}

// Gate holds entry builds back while the process is under pressure.
type Gate interface {
	Wait(ctx context.Context) error
}

// Indexer walks a library root and produces its entries.
type Indexer struct {
	manifest *manifest.Store
	workers  int
	gate     Gate

	running       atomic.Int32
	entriesBuilt  atomic.Int64
	mu            sync.Mutex
	lastIndexTime time.Time
	lastDuration  time.Duration
}

// New creates an Indexer that caches chapter counts in m.
func New(m *manifest.Store, opts Options) *Indexer {
	n := opts.Workers
	if n <= 0 {
		n = workers.ForIO(maxWorkers)
	}
	return &Indexer{
		manifest: m,
		workers:  n,
		gate:     opts.Gate,
	}
}

// Manifest returns the store backing the chapter-count cache.
func (idx *Indexer) Manifest() *manifest.Store {
	return idx.manifest
}

// IsIndexing reports whether an IndexRoot call is in progress.
func (idx *Indexer) IsIndexing() bool {
	return idx.running.Load() > 0
}

// LastIndexTime returns when the last IndexRoot call completed.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.lastIndexTime
}

// LastIndexDuration returns how long the last IndexRoot call took.
func (idx *Indexer) LastIndexDuration() time.Duration {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.lastDuration
}

// EntriesBuilt returns the number of entries produced since creation.
func (idx *Indexer) EntriesBuilt() int64 {
	return idx.entriesBuilt.Load()
}

// IndexRoot enumerates root and returns its entries sorted by title.
// Concurrent calls are independent; each uses its own scan cache.
// After a complete pass, manifest rows under root that no longer belong to
// an entry are pruned.
func (idx *Indexer) IndexRoot(ctx context.Context, root string) ([]Entry, error) {
	idx.running.Add(1)
	metrics.IndexerIsRunning.Inc()
	defer func() {
		idx.running.Add(-1)
		metrics.IndexerIsRunning.Dec()
	}()
	metrics.IndexerRunsTotal.Inc()

	start := time.Now()
	root = filepath.Clean(root)
	logging.Info("Indexing library root %s", root)

	cache := NewScanCache()
	dirs, err := findEntryDirectories(ctx, root, cache)
	if err != nil {
		return nil, err
	}

	built := make([]Entry, len(dirs))
	ok := make([]bool, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if idx.gate != nil {
				if err := idx.gate.Wait(gctx); err != nil {
					return err
				}
			}
			built[i], ok[i] = idx.BuildEntry(gctx, dir, cache)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("index %s: %w", root, err)
	}

	entries := make([]Entry, 0, len(dirs))
	active := make(map[string]struct{}, len(dirs))
	for i := range built {
		if ok[i] {
			entries = append(entries, built[i])
			active[built[i].Path] = struct{}{}
		}
	}
	SortEntries(entries)

	if idx.manifest != nil {
		idx.manifest.Prune(root, active)
	}

	duration := time.Since(start)
	idx.mu.Lock()
	idx.lastIndexTime = time.Now()
	idx.lastDuration = duration
	idx.mu.Unlock()

	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(duration.Seconds())
	logging.Info("Indexed %d entries under %s in %v (%d directories scanned)",
		len(entries), root, duration, cache.Len())

	return entries, nil
}

// SortEntries orders entries naturally by title, then by path.
func SortEntries(entries []Entry) {
	naturalsort.Sort(entries, func(e Entry) string { return e.Path })
	naturalsort.Sort(entries, func(e Entry) string { return e.Title })
}

// findEntryDirectories applies the containment heuristic to the children of
// root.
func findEntryDirectories(ctx context.Context, root string, cache *ScanCache) ([]string, error) {
	rootScan := cache.Scan(root)

	var dirs []string
	for _, child := range rootScan.Subdirectories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hasChapterContent(child, cache) {
			dirs = append(dirs, child)
			continue
		}
		for _, grandchild := range cache.Scan(child).Subdirectories {
			if hasChapterContent(grandchild, cache) {
				dirs = append(dirs, grandchild)
			}
		}
	}

	if len(dirs) == 0 && rootScan.HasChapterFiles() {
		dirs = append(dirs, root)
	}
	return dirs, nil
}

// hasChapterContent reports whether dir, or one of its immediate
// subdirectories, directly holds archives or images.
func hasChapterContent(dir string, cache *ScanCache) bool {
	scan := cache.Scan(dir)
	if scan.HasChapterFiles() {
		return true
	}
	for _, sub := range scan.Subdirectories {
		if cache.Scan(sub).HasChapterFiles() {
			return true
		}
	}
	return false
}

// BuildEntry produces the entry for dir, consulting the manifest before
// counting chapters. It returns false when dir can not be read.
func (idx *Indexer) BuildEntry(ctx context.Context, dir string, cache *ScanCache) (Entry, bool) {
	if ctx.Err() != nil {
		return Entry{}, false
	}
	if cache == nil {
		cache = NewScanCache()
	}
	dir = filepath.Clean(dir)

	mtime, err := filesystem.ModTime(dir)
	if err != nil {
		logging.Debug("Skipping entry %s: %v", dir, err)
		return Entry{}, false
	}

	var count int
	// Rounded to manifest precision so cached and fresh entries compare equal.
	lastModified := manifest.FromTicks(manifest.ToTicks(mtime))

	var row manifest.Row
	var hit bool
	if idx.manifest != nil {
		row, hit = idx.manifest.Lookup(dir, mtime)
	}
	if hit {
		count = *row.ChapterCount
		if t := row.EntryModified(); !t.IsZero() {
			lastModified = t
		}
	} else {
		count = len(collectChapters(dir, cache))
		if idx.manifest != nil {
			idx.manifest.Update(dir, mtime, count, lastModified)
		}
	}

	idx.entriesBuilt.Add(1)
	metrics.IndexerEntriesBuilt.Inc()

	title := titleFromPath(dir)
	return Entry{
		Title:        title,
		Path:         dir,
		ChapterCount: count,
		LastModified: lastModified,
		GroupKey:     GroupKeyFor(title),
	}, true
}

// Chapters lists the chapters of the entry at dir in reading order.
func (idx *Indexer) Chapters(ctx context.Context, dir string) ([]Chapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collectChapters(filepath.Clean(dir), NewScanCache()), nil
}

// collectChapters resolves chapters with this priority: archive files in
// dir; then subdirectories that have chapter content, where a subdirectory
// directly holding archives contributes each archive; then, when
// subdirectories exist but none qualify, every subdirectory; and last dir
// itself as a single chapter of loose images.
func collectChapters(dir string, cache *ScanCache) []Chapter {
	scan := cache.Scan(dir)

	var chapters []Chapter
	add := func(title, url string) {
		chapters = append(chapters, Chapter{Title: title, URL: url, Number: len(chapters) + 1})
	}

	switch {
	case len(scan.ArchiveFiles) > 0:
		for _, f := range scan.ArchiveFiles {
			add(chapterTitle(f), f)
		}

	case len(scan.Subdirectories) > 0:
		for _, sub := range scan.Subdirectories {
			if subScan := cache.Scan(sub); len(subScan.ArchiveFiles) > 0 {
				for _, f := range subScan.ArchiveFiles {
					add(filepath.Base(sub)+" - "+chapterTitle(f), f)
				}
				continue
			}
			if hasChapterContent(sub, cache) {
				add(filepath.Base(sub), sub)
			}
		}
		if len(chapters) > 0 {
			break
		}
		for _, sub := range scan.Subdirectories {
			add(filepath.Base(sub), sub)
		}

	case len(scan.ImageFiles) > 0:
		add(titleFromPath(dir), dir)
	}

	return chapters
}

// ChapterImages lists the pages of a chapter. chapterURL is either a
// directory of images, taken from its subdirectories in order when it has
// none of its own, or an archive file. Unreadable chapters yield an empty
// list; only cancellation is reported as an error.
func (idx *Indexer) ChapterImages(ctx context.Context, chapterURL string) ([]ChapterImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chapterURL = filepath.Clean(chapterURL)

	info, err := filesystem.StatWithRetry(chapterURL, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("Chapter %s unavailable: %v", chapterURL, err)
		return []ChapterImage{}, nil
	}

	if info.IsDir() {
		cache := NewScanCache()
		scan := cache.Scan(chapterURL)
		files := scan.ImageFiles
		if len(files) == 0 {
			// A chapter directory may hold its pages one level down.
			for _, sub := range scan.Subdirectories {
				files = append(files, cache.Scan(sub).ImageFiles...)
			}
		}
		images := make([]ChapterImage, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			images = append(images, ChapterImage{ImageURL: f})
		}
		return images, nil
	}

	keys, err := archive.ListImageEntries(chapterURL)
	if err != nil {
		logging.Debug("Chapter archive %s unreadable: %v", chapterURL, err)
		return []ChapterImage{}, nil
	}

	images := make([]ChapterImage, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := archive.Descriptor{ArchivePath: chapterURL, EntryKey: key}
		images = append(images, ChapterImage{ImageURL: d.String(), Archive: &d})
	}
	return images, nil
}
