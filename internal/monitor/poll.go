package monitor

import (
	"context"
	"path/filepath"
	"time"

	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
	"manga-library/internal/mediatypes"
	"manga-library/internal/metrics"
)

// pollSnapshot is the state compared between polling ticks: the root's own
// mtime plus the mtimes of its immediate subdirectories, which catches
// chapters added to an existing series without walking the tree.
type pollSnapshot struct {
	rootMod time.Time
	subdirs map[string]time.Time
	ok      bool
}

func takeSnapshot(root string) pollSnapshot {
	rootMod, err := filesystem.ModTime(root)
	if err != nil {
		logging.Debug("Polling could not stat %s: %v", root, err)
		return pollSnapshot{}
	}

	snap := pollSnapshot{rootMod: rootMod, subdirs: make(map[string]time.Time), ok: true}

	entries, err := filesystem.ReadDirWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("Polling could not read %s: %v", root, err)
		return snap
	}
	for _, entry := range entries {
		if !entry.IsDir() || mediatypes.IsHidden(entry.Name()) {
			continue
		}
		if mod, err := filesystem.ModTime(filepath.Join(root, entry.Name())); err == nil {
			snap.subdirs[entry.Name()] = mod
		}
	}
	return snap
}

// changedFrom reports whether s differs from prev.
func (s pollSnapshot) changedFrom(prev pollSnapshot) bool {
	if s.ok != prev.ok || !s.rootMod.Equal(prev.rootMod) || len(s.subdirs) != len(prev.subdirs) {
		return true
	}
	for name, mod := range s.subdirs {
		if old, ok := prev.subdirs[name]; !ok || !old.Equal(mod) {
			logging.Debug("Subdirectory %s modified: %v -> %v", name, old, mod)
			return true
		}
	}
	return false
}

func (m *Monitor) runPolling(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Polling for %s stopped", m.root)
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	metrics.PollChecksTotal.Inc()

	current := takeSnapshot(m.root)
	if !current.changedFrom(m.snapshot) {
		return
	}
	m.snapshot = current

	metrics.PollChangesDetected.Inc()
	logging.Debug("Polling detected a change under %s", m.root)
	m.emit(ChangeEvent{Kind: Changed, FullPath: m.root})
}
