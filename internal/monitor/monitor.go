package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
	"manga-library/internal/mediatypes"
	"manga-library/internal/metrics"
)

const (
	// DefaultPollInterval is the polling period when native watching is
	// unavailable.
	DefaultPollInterval = 5 * time.Second

	// DefaultBufferSize is the capacity of the event channel.
	DefaultBufferSize = 256
)

var (
	// ErrRootUnavailable is returned by Start when the root is unset or can
	// not be read.
	ErrRootUnavailable = errors.New("library root unavailable")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("monitor already started")

	// ErrStopped is returned by Start once Stop has been called.
	ErrStopped = errors.New("monitor stopped")
)

// Options configures a Monitor.
type Options struct {
	PollInterval time.Duration
	BufferSize   int
	// ForcePolling skips native watching, for filesystems such as NFS or
	// SMB mounts where change notifications are not delivered.
	ForcePolling bool
}

// Monitor watches one library root.
type Monitor struct {
	root     string
	resolver Resolver
	opts     Options
	events   chan ChangeEvent

	mu      sync.Mutex
	mode    Mode
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	watcher *fsnotify.Watcher

	stopOnce sync.Once

	// Owned by the run goroutine.
	pendingReset bool
	snapshot     pollSnapshot
}

// New creates a Monitor for root. resolver may be nil, in which case events
// are never resolved to entries.
func New(root string, resolver Resolver, opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if root != "" {
		root = filepath.Clean(root)
	}
	return &Monitor{
		root:     root,
		resolver: resolver,
		opts:     opts,
		events:   make(chan ChangeEvent, opts.BufferSize),
	}
}

// Root returns the watched directory.
func (m *Monitor) Root() string {
	return m.root
}

// Events returns the channel events are delivered on. It is closed by Stop.
func (m *Monitor) Events() <-chan ChangeEvent {
	return m.events
}

// Mode returns the current watching strategy.
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Monitor) setMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	metrics.SetMonitorMode(mode.String())
}

// Start begins watching. It returns ErrRootUnavailable, leaving the monitor
// Unwatched, when the root does not exist. A failure to attach the native
// watcher is not an error; the monitor polls instead.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if m.root == "" {
		return ErrRootUnavailable
	}
	info, err := filesystem.StatWithRetry(m.root, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootUnavailable, m.root)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	mode := Polling
	var watcher *fsnotify.Watcher
	if !m.opts.ForcePolling {
		watcher, err = m.attach()
		if err != nil {
			logging.Warn("Native file watching unavailable for %s, polling every %v: %v",
				m.root, m.opts.PollInterval, err)
			metrics.WatcherErrors.Inc()
		} else {
			mode = NativeWatching
		}
	}

	watched := 0
	if mode == Polling {
		m.snapshot = takeSnapshot(m.root)
	} else {
		watched = len(watcher.WatchList())
	}

	// Stop may have run while the watcher was attaching. The run goroutine
	// is spawned under the lock so Stop either waits for it or is seen here.
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		cancel()
		if watcher != nil {
			watcher.Close()
		}
		return ErrStopped
	}
	m.cancel = cancel
	m.done = done
	m.watcher = watcher
	m.mode = mode
	if mode == NativeWatching {
		go m.runNative(runCtx, watcher, done)
	} else {
		go m.runPolling(runCtx, done)
	}
	metrics.SetMonitorMode(mode.String())
	m.mu.Unlock()

	if mode == NativeWatching {
		logging.Info("Watching %s for changes (%d directories)", m.root, watched)
	} else {
		logging.Info("Polling %s for changes every %v", m.root, m.opts.PollInterval)
	}
	return nil
}

// Stop halts watching, releases watch handles and closes the event channel.
// It is safe to call more than once and on a monitor that never started.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		cancel, done, watcher := m.cancel, m.done, m.watcher
		m.stopped = true
		m.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				logging.Warn("failed to close file watcher: %v", err)
			}
		}
		if done != nil {
			<-done
		}
		close(m.events)

		m.setMode(Unwatched)
		metrics.WatchedDirectories.Set(0)
	})
}

// attach creates a native watcher covering every directory under the root.
// Failing to watch the root itself is fatal; failures deeper in the tree
// are logged and skipped.
func (m *Monitor) attach() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(m.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", m.root, err)
	}
	m.addTree(watcher, m.root, false)
	return watcher, nil
}

// addTree adds watches for every non-hidden directory below dir, and for dir
// itself when includeSelf is set.
func (m *Monitor) addTree(watcher *fsnotify.Watcher, dir string, includeSelf bool) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("Skipping unreadable path while adding watches %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && mediatypes.IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		if path == dir && !includeSelf {
			return nil
		}
		if addErr := watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
		}
		return nil
	})
	if err != nil {
		logging.Warn("failed to walk %s for watcher: %v", dir, err)
		metrics.WatcherErrors.Inc()
	}
	metrics.WatchedDirectories.Set(float64(len(watcher.WatchList())))
}

func (m *Monitor) runNative(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("Watcher queue overflowed for %s, requesting full rebuild", m.root)
				m.emit(ChangeEvent{Kind: Reset, FullPath: m.root})
				continue
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (m *Monitor) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if m.isHiddenPath(event.Name) {
		return
	}

	var kind Kind
	switch {
	case event.Has(fsnotify.Create):
		kind = Added
		if info, err := filesystem.StatWithRetry(event.Name, filesystem.DefaultRetryConfig()); err == nil && info.IsDir() {
			m.addTree(watcher, event.Name, true)
			logging.Debug("Added new directory to watcher: %s", event.Name)
		}
	case event.Has(fsnotify.Remove):
		kind = Removed
	case event.Has(fsnotify.Rename):
		// fsnotify reports the old name only; the new name arrives as a
		// separate Create.
		kind = Renamed
	case event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		kind = Changed
	default:
		return
	}

	ev := ChangeEvent{Kind: kind, FullPath: event.Name}
	if kind == Renamed {
		ev.OldPath = event.Name
	}
	m.emit(ev)

	if kind == Removed || kind == Renamed {
		metrics.WatchedDirectories.Set(float64(len(watcher.WatchList())))
	}
}

// isHiddenPath reports whether any component of path below the root is
// hidden.
func (m *Monitor) isHiddenPath(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part != "." && part != ".." && mediatypes.IsHidden(part) {
			return true
		}
	}
	return false
}

// emit resolves ev and queues it without blocking. Called only from the run
// goroutine.
func (m *Monitor) emit(ev ChangeEvent) {
	if m.pendingReset {
		if !m.trySend(ChangeEvent{Kind: Reset, FullPath: m.root}) {
			metrics.WatcherEventsDropped.Inc()
			return
		}
		m.pendingReset = false
		if ev.Kind == Reset {
			return
		}
	}

	m.resolve(&ev)
	if !m.trySend(ev) {
		m.pendingReset = true
		metrics.WatcherEventsDropped.Inc()
		logging.Debug("Event channel full, dropped %s %s", ev.Kind, ev.FullPath)
	}
}

func (m *Monitor) trySend(ev ChangeEvent) bool {
	select {
	case m.events <- ev:
		metrics.WatcherEventsTotal.WithLabelValues(ev.Kind.String()).Inc()
		return true
	default:
		return false
	}
}

func (m *Monitor) resolve(ev *ChangeEvent) {
	if m.resolver == nil || ev.Kind == Reset {
		return
	}
	if p, ok := m.resolver.FindEntryPathForChange(ev.FullPath); ok {
		ev.EntryPath = p
	}
	if ev.OldPath != "" {
		if p, ok := m.resolver.FindEntryPathForChange(ev.OldPath); ok {
			ev.OldEntryPath = p
		}
	}
}
