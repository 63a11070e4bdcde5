package handlers

import (
	"net/http"
	"runtime"
	"time"

	"manga-library/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Ready             bool   `json:"ready"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	Indexing          bool   `json:"indexing"`
	Root              string `json:"root,omitempty"`
	MonitorMode       string `json:"monitorMode"`
	LastIndexed       string `json:"lastIndexed,omitempty"`
	LastIndexDuration string `json:"lastIndexDuration,omitempty"`
	InitialIndexError string `json:"initialIndexError,omitempty"`

	Entries      int `json:"entries"`
	Chapters     int `json:"chapters"`
	ManifestRows int `json:"manifestRows"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.library.GetHealthStatus()

	response := HealthResponse{
		Ready:             status.Ready,
		Version:           startup.Version,
		Uptime:            status.Uptime,
		Indexing:          status.Indexing,
		Root:              status.Root,
		MonitorMode:       status.MonitorMode,
		LastIndexDuration: status.LastIndexDuration,
		InitialIndexError: status.InitialIndexError,
		Entries:           status.Entries,
		Chapters:          status.Chapters,
		ManifestRows:      status.ManifestRows,
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	}

	switch {
	case status.InitialIndexError != "":
		response.Status = statusDegraded
	case status.Ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	if !status.LastIndexed.IsZero() {
		response.LastIndexed = status.LastIndexed.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")

	// 503 only if not ready at all
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// HEAD gets headers only
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the initial index has completed
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.library.IsReady() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{"status": "ready"})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
	}
}
