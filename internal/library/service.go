package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"manga-library/internal/filesystem"
	"manga-library/internal/indexer"
	"manga-library/internal/logging"
	"manga-library/internal/manifest"
	"manga-library/internal/metrics"
	"manga-library/internal/monitor"
)

var (
	// ErrEntryNotFound is returned for paths that are not tracked entries, or
	// chapters and pages outside of one.
	ErrEntryNotFound = errors.New("library entry not found")

	// ErrNoRoot is returned when no library root is configured.
	ErrNoRoot = errors.New("no library root configured")

	// ErrClosed is returned by operations on a closed Service.
	ErrClosed = errors.New("library service closed")
)

// subscriberBuffer is the per-subscriber event backlog. Slow subscribers
// miss events beyond it.
const subscriberBuffer = 64

// Config configures a Service.
type Config struct {
	Root          string
	ManifestPath  string
	PollInterval  time.Duration
	FlushInterval time.Duration
	ForcePolling  bool
	Workers       int
	EventBuffer   int

	// Gate throttles entry builds; see indexer.Options.
	Gate indexer.Gate
}

// RootProvider supplies the library root and announces edits to it.
type RootProvider interface {
	Root() string
	Changes() <-chan string
}

// Service is the library façade. It is safe for concurrent use.
type Service struct {
	cfg       Config
	manifest  *manifest.Store
	indexer   *indexer.Indexer
	startTime time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// rootMu serializes root changes.
	rootMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	mu                sync.RWMutex
	mon               *monitor.Monitor
	root              string
	entries           map[string]indexer.Entry
	ready             bool
	initialIndexError error

	reindexGroup singleflight.Group

	subsMu  sync.Mutex
	subs    map[int]chan monitor.ChangeEvent
	nextSub int

	flusherDone chan struct{}
	flushErr    error
	started     atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
}

// New creates a Service. The manifest is loaded immediately; nothing is
// indexed or watched until Start.
func New(cfg Config) *Service {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = manifest.DefaultFlushInterval
	}

	store := manifest.Load(cfg.ManifestPath)
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		cfg:       cfg,
		manifest:  store,
		indexer:   indexer.New(store, indexer.Options{Workers: cfg.Workers, Gate: cfg.Gate}),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]indexer.Entry),
		subs:      make(map[int]chan monitor.ChangeEvent),
	}
}

// Start begins periodic manifest flushing, then indexes and watches the
// configured root. An index failure is recorded and returned but leaves the
// service usable.
func (s *Service) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.flusherDone = make(chan struct{})
	go func() {
		defer close(s.flusherDone)
		s.flushErr = s.manifest.RunFlusher(s.ctx, s.cfg.FlushInterval)
	}()

	if s.cfg.Root == "" {
		logging.Warn("No library root configured; waiting for settings")
		return nil
	}

	err := s.SetRoot(ctx, s.cfg.Root)
	if err != nil {
		s.mu.Lock()
		s.initialIndexError = err
		s.mu.Unlock()
	}
	return err
}

// Root returns the current library root.
func (s *Service) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Manifest returns the backing manifest store.
func (s *Service) Manifest() *manifest.Store {
	return s.manifest
}

// MonitorMode reports how the current root is being watched.
func (s *Service) MonitorMode() monitor.Mode {
	s.mu.RLock()
	mon := s.mon
	s.mu.RUnlock()
	if mon == nil {
		return monitor.Unwatched
	}
	return mon.Mode()
}

// IsReady reports whether the current root has been indexed at least once.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// IsIndexing reports whether a full index is running.
func (s *Service) IsIndexing() bool {
	return s.indexer.IsIndexing()
}

// SetRoot switches the library to root. The previous monitor is torn down,
// the entry list is rebuilt from scratch, and a new monitor is started.
// An empty root clears the library.
func (s *Service) SetRoot(ctx context.Context, root string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if root != "" {
		root = filepath.Clean(root)
	}

	s.rootMu.Lock()
	defer s.rootMu.Unlock()

	s.stopWatchingLocked()

	s.mu.Lock()
	s.root = root
	s.entries = make(map[string]indexer.Entry)
	s.ready = false
	s.mu.Unlock()
	s.updateGauges()

	if root == "" {
		logging.Info("Library root cleared")
		return nil
	}
	logging.Info("Library root set to %s", root)

	mon := monitor.New(root, s.manifest, monitor.Options{
		PollInterval: s.cfg.PollInterval,
		BufferSize:   s.cfg.EventBuffer,
		ForcePolling: s.cfg.ForcePolling,
	})
	if err := mon.Start(s.ctx); err != nil {
		logging.Warn("Not watching %s: %v", root, err)
	}

	loopCtx, loopCancel := context.WithCancel(s.ctx)
	loopDone := make(chan struct{})
	s.mu.Lock()
	s.mon = mon
	s.mu.Unlock()
	s.loopCancel = loopCancel
	s.loopDone = loopDone
	go s.runUpdateLoop(loopCtx, mon, loopDone)

	_, err := s.Reindex(ctx)
	return err
}

// stopWatchingLocked stops the current monitor and update loop. rootMu must
// be held.
func (s *Service) stopWatchingLocked() {
	if s.mon == nil {
		return
	}
	s.loopCancel()
	s.mon.Stop()
	<-s.loopDone

	s.mu.Lock()
	s.mon = nil
	s.mu.Unlock()
	s.loopCancel, s.loopDone = nil, nil
}

// Reindex rebuilds the entry list for the current root. Concurrent calls
// share one indexing run; cancelling ctx abandons the wait but not the run.
func (s *Service) Reindex(ctx context.Context) ([]indexer.Entry, error) {
	root := s.Root()
	if root == "" {
		return nil, ErrNoRoot
	}

	ch := s.reindexGroup.DoChan(root, func() (any, error) {
		return s.reindex(root)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneEntries(res.Val.([]indexer.Entry)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) reindex(root string) ([]indexer.Entry, error) {
	metrics.IndexerIncrementalUpdates.WithLabelValues("reindex").Inc()

	entries, err := s.indexer.IndexRoot(s.ctx, root)
	if err != nil {
		return nil, fmt.Errorf("reindex %s: %w", root, err)
	}

	s.mu.Lock()
	if s.root != root {
		s.mu.Unlock()
		logging.Debug("Discarding index of %s; root changed to %s", root, s.Root())
		return entries, nil
	}
	s.entries = make(map[string]indexer.Entry, len(entries))
	for _, e := range entries {
		s.entries[e.Path] = e
	}
	s.ready = true
	s.initialIndexError = nil
	s.mu.Unlock()

	s.updateGauges()
	s.publish(monitor.ChangeEvent{Kind: monitor.Reset, FullPath: root})
	return entries, nil
}

func (s *Service) updateGauges() {
	stats := s.GetStats()
	metrics.LibraryEntries.Set(float64(stats.Entries))
	metrics.LibraryChapters.Set(float64(stats.Chapters))
}

// GetStats implements metrics.StatsProvider.
func (s *Service) GetStats() metrics.Stats {
	s.mu.RLock()
	stats := metrics.Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		stats.Chapters += e.ChapterCount
	}
	s.mu.RUnlock()

	stats.ManifestRows = s.manifest.Len()
	return stats
}

// Close stops watching, flushes the manifest and releases all resources.
// It returns the result of the final manifest save.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.rootMu.Lock()
		s.stopWatchingLocked()
		s.rootMu.Unlock()

		s.cancel()
		if s.flusherDone != nil {
			<-s.flusherDone
			err = s.flushErr
		} else {
			err = s.manifest.SaveIfDirty()
		}

		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()

		logging.Info("Library service closed")
	})
	return err
}

// Run applies root changes from provider until ctx is done or the provider's
// change channel closes. The provider's current root is applied first if it
// differs from the service's.
func (s *Service) Run(ctx context.Context, provider RootProvider) error {
	if root := provider.Root(); root != "" && filepath.Clean(root) != s.Root() {
		if err := s.SetRoot(ctx, root); err != nil {
			logging.Error("Failed to apply library root %s: %v", root, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case root, ok := <-provider.Changes():
			if !ok {
				return nil
			}
			logging.Info("Library root changed in settings: %s", root)
			if err := s.SetRoot(ctx, root); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Error("Failed to apply library root %s: %v", root, err)
			}
		}
	}
}

// within reports whether path equals dir or lies below it.
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil && info.IsDir()
}
