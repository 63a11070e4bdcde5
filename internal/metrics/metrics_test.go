package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetMonitorMode(t *testing.T) {
	SetMonitorMode("polling")

	if got := testutil.ToFloat64(MonitorMode.WithLabelValues("polling")); got != 1 {
		t.Errorf("polling gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(MonitorMode.WithLabelValues("native")); got != 0 {
		t.Errorf("native gauge = %v, want 0", got)
	}

	SetMonitorMode("native")
	if got := testutil.ToFloat64(MonitorMode.WithLabelValues("polling")); got != 0 {
		t.Errorf("polling gauge after switch = %v, want 0", got)
	}
}

func TestFilesystemObserverCountsErrors(t *testing.T) {
	obs := NewFilesystemObserver()
	counter := FilesystemOperationErrors.WithLabelValues("library", "readdir")
	before := testutil.ToFloat64(counter)

	obs.ObserveOperation("library", "readdir", 0.01, nil)
	obs.ObserveOperation("library", "readdir", 0.01, errors.New("boom"))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("error counter delta = %v, want 1", got)
	}
}

type fakeStats struct{ stats Stats }

func (f fakeStats) GetStats() Stats { return f.stats }

func TestCollectorPublishesLibraryGauges(t *testing.T) {
	c := NewCollector(fakeStats{Stats{Entries: 3, Chapters: 42, ManifestRows: 5}}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(LibraryEntries); got != 3 {
		t.Errorf("LibraryEntries = %v, want 3", got)
	}
	if got := testutil.ToFloat64(LibraryChapters); got != 42 {
		t.Errorf("LibraryChapters = %v, want 42", got)
	}
	if got := testutil.ToFloat64(ManifestRows); got != 5 {
		t.Errorf("ManifestRows = %v, want 5", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if got := testutil.ToFloat64(MonitorMode.WithLabelValues("unwatched")); got != 1 {
		t.Errorf("unwatched gauge = %v, want 1", got)
	}
}
