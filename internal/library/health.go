package library

import "time"

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool      `json:"ready"`
	Indexing          bool      `json:"indexing"`
	Root              string    `json:"root"`
	MonitorMode       string    `json:"monitorMode"`
	StartTime         time.Time `json:"startTime"`
	Uptime            string    `json:"uptime"`
	LastIndexed       time.Time `json:"lastIndexed,omitempty"`
	LastIndexDuration string    `json:"lastIndexDuration,omitempty"`
	InitialIndexError string    `json:"initialIndexError,omitempty"`
	Entries           int       `json:"entries"`
	Chapters          int       `json:"chapters"`
	ManifestRows      int       `json:"manifestRows"`
}

// GetHealthStatus returns detailed health information.
func (s *Service) GetHealthStatus() HealthStatus {
	stats := s.GetStats()

	s.mu.RLock()
	status := HealthStatus{
		Ready:        s.ready,
		Root:         s.root,
		StartTime:    s.startTime,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		Entries:      stats.Entries,
		Chapters:     stats.Chapters,
		ManifestRows: stats.ManifestRows,
	}
	if s.initialIndexError != nil {
		status.InitialIndexError = s.initialIndexError.Error()
	}
	s.mu.RUnlock()

	status.Indexing = s.indexer.IsIndexing()
	status.MonitorMode = s.MonitorMode().String()
	status.LastIndexed = s.indexer.LastIndexTime()
	if d := s.indexer.LastIndexDuration(); d > 0 {
		status.LastIndexDuration = d.String()
	}
	return status
}
