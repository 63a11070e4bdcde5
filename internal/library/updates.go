package library

import (
	"context"
	"path/filepath"

	"manga-library/internal/logging"
	"manga-library/internal/metrics"
	"manga-library/internal/monitor"
)

func (s *Service) runUpdateLoop(ctx context.Context, mon *monitor.Monitor, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-mon.Events():
			if !ok {
				return
			}
			s.apply(ctx, ev)
		}
	}
}

// apply folds one change event into the entry list.
func (s *Service) apply(ctx context.Context, ev monitor.ChangeEvent) {
	logging.Debug("Applying %s event for %s (entry %q)", ev.Kind, ev.FullPath, ev.EntryPath)

	// The root is an entry only while nothing below it qualifies; a new
	// series folder splits it, which needs the containment pass.
	rootEntry := (ev.Kind == monitor.Added || ev.Kind == monitor.Changed) &&
		filepath.Clean(ev.EntryPath) == filepath.Clean(s.Root())

	if ev.Kind == monitor.Reset || !ev.Resolved() || rootEntry {
		if _, err := s.Reindex(ctx); err != nil && ctx.Err() == nil {
			logging.Error("Reindex after %s event failed: %v", ev.Kind, err)
		}
		return
	}

	switch ev.Kind {
	case monitor.Removed, monitor.Renamed:
		s.manifest.Remove(ev.EntryPath)
		if ev.OldEntryPath != "" && ev.OldEntryPath != ev.EntryPath {
			s.manifest.Remove(ev.OldEntryPath)
			s.refreshEntry(ctx, ev.OldEntryPath)
		}
		s.refreshEntry(ctx, ev.EntryPath)

	case monitor.Added, monitor.Changed:
		// Force a recount: the change may be below the entry directory and
		// leave its own mtime untouched.
		s.manifest.Remove(ev.EntryPath)
		s.refreshEntry(ctx, ev.EntryPath)
	}

	s.publish(ev)
}

// refreshEntry rebuilds the entry at dir, or drops it when dir is gone.
func (s *Service) refreshEntry(ctx context.Context, dir string) {
	if !dirExists(dir) {
		s.removeEntry(dir)
		return
	}

	entry, ok := s.indexer.BuildEntry(ctx, dir, nil)
	if !ok {
		s.removeEntry(dir)
		return
	}

	s.mu.Lock()
	if !within(dir, s.root) {
		s.mu.Unlock()
		return
	}
	s.entries[entry.Path] = entry
	s.mu.Unlock()

	metrics.IndexerIncrementalUpdates.WithLabelValues("upsert").Inc()
	s.updateGauges()
}

func (s *Service) removeEntry(dir string) {
	s.manifest.Remove(dir)

	s.mu.Lock()
	_, existed := s.entries[dir]
	delete(s.entries, dir)
	s.mu.Unlock()

	if existed {
		metrics.IndexerIncrementalUpdates.WithLabelValues("remove").Inc()
		s.updateGauges()
	}
}

// Subscribe returns a channel receiving every applied change event, and a
// function that ends the subscription. Reindexes are announced as Reset.
// Events are dropped for subscribers that fall behind.
func (s *Service) Subscribe() (<-chan monitor.ChangeEvent, func()) {
	ch := make(chan monitor.ChangeEvent, subscriberBuffer)

	s.subsMu.Lock()
	if s.closed.Load() {
		s.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *Service) publish(ev monitor.ChangeEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logging.Debug("Subscriber %d is behind, dropping %s event", id, ev.Kind)
		}
	}
}
