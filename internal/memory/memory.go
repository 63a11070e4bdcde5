package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"manga-library/internal/logging"
	"manga-library/internal/metrics"
)

// Config holds watermarks for the Monitor.
type Config struct {
	// LimitBytes overrides GOMEMLIMIT when non-zero.
	LimitBytes int64

	// PauseAt is the heap/limit ratio at which entry builds stop (0.0-1.0).
	PauseAt float64

	// ResumeAt is the ratio below which paused builds continue.
	ResumeAt float64

	CheckInterval time.Duration
}

// DefaultConfig returns the watermarks used by the server.
func DefaultConfig() Config {
	return Config{
		PauseAt:       0.85,
		ResumeAt:      0.7,
		CheckInterval: 2 * time.Second,
	}
}

// Monitor samples heap usage and holds indexing back while it is above the
// pause watermark. It satisfies indexer.Gate.
type Monitor struct {
	config Config
	limit  int64

	mu      sync.Mutex
	alloc   uint64
	paused  bool
	resumed chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMonitor creates a Monitor. Without a limit it never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no limit configured, indexing is never paused")
	} else {
		logging.Info("Memory monitor: pausing index builds above %.0f%% of %s", config.PauseAt*100, FormatBytes(limit))
	}
	return &Monitor{
		config:  config,
		limit:   limit,
		resumed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Limit returns the byte limit the watermarks apply to.
func (m *Monitor) Limit() int64 {
	return m.limit
}

// Start begins periodic sampling.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				m.observe(stats.Alloc)
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// observe records an allocation sample and flips the paused state when a
// watermark is crossed.
func (m *Monitor) observe(alloc uint64) {
	if m.limit == 0 {
		return
	}
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.alloc = alloc

	switch {
	case !m.paused && usage >= m.config.PauseAt:
		logging.Warn("Memory at %.1f%% of limit, pausing index builds", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case m.paused && usage < m.config.ResumeAt:
		logging.Info("Memory at %.1f%% of limit, resuming index builds", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns ctx.Err() if ctx ends
// first and nil once building may continue or the monitor is stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resumed := m.resumed
	m.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether builds are currently held.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled heap/limit ratio, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.alloc) / float64(m.limit)
}
