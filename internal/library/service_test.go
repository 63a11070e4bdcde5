package library

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-library/internal/manifest"
	"manga-library/internal/monitor"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func writeZip(t *testing.T, path string, pages map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range pages {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// newLibrary builds a library with two series and starts a polling service
// over it.
func newLibrary(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()

	writeZip(t, filepath.Join(root, "Alpha", "ch1.cbz"), map[string]string{"2.jpg": "a2", "1.jpg": "a1"})
	writeZip(t, filepath.Join(root, "Alpha", "ch2.cbz"), map[string]string{"1.jpg": "b1"})
	writeFile(t, filepath.Join(root, "Beta", "1.jpg"), "beta one")
	writeFile(t, filepath.Join(root, "Beta", "2.jpg"), "beta two")

	svc := New(Config{
		Root:          root,
		ManifestPath:  filepath.Join(t.TempDir(), manifest.DefaultFileName),
		PollInterval:  time.Hour,
		FlushInterval: time.Hour,
		ForcePolling:  true,
	})
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Close() })
	return svc, root
}

func TestServiceReads(t *testing.T) {
	svc, root := newLibrary(t)
	ctx := context.Background()

	assert.True(t, svc.IsReady())
	assert.Equal(t, monitor.Polling, svc.MonitorMode())

	entries, err := svc.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Alpha", entries[0].Title)
	assert.Equal(t, 2, entries[0].ChapterCount)
	assert.Equal(t, "Beta", entries[1].Title)
	assert.Equal(t, 1, entries[1].ChapterCount)

	entry, err := svc.GetEntry(ctx, filepath.Join(root, "Beta"))
	require.NoError(t, err)
	assert.Equal(t, "B", entry.GroupKey)

	_, err = svc.GetEntry(ctx, filepath.Join(root, "Gamma"))
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	chapters, err := svc.GetChapters(ctx, filepath.Join(root, "Alpha"))
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "ch1", chapters[0].Title)

	images, err := svc.GetChapterImages(ctx, chapters[0].URL)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, chapters[0].URL+"::1.jpg", images[0].ImageURL)

	page, err := svc.OpenImage(ctx, images[1].ImageURL)
	require.NoError(t, err)
	defer page.Close()
	data, err := io.ReadAll(page)
	require.NoError(t, err)
	assert.Equal(t, "a2", string(data))
	assert.Equal(t, "image/jpeg", page.MimeType)

	filePage, err := svc.OpenImage(ctx, filepath.Join(root, "Beta", "2.jpg"))
	require.NoError(t, err)
	defer filePage.Close()
	data, err = io.ReadAll(filePage)
	require.NoError(t, err)
	assert.Equal(t, "beta two", string(data))
}

func TestServiceRejectsPathsOutsideEntries(t *testing.T) {
	svc, root := newLibrary(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "secret.jpg")
	writeFile(t, outside, "nope")

	_, err := svc.OpenImage(ctx, outside)
	assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)

	_, err = svc.OpenImage(ctx, filepath.Join(root, "Beta", "..", "..", "secret.jpg"))
	assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)

	_, err = svc.OpenImage(ctx, filepath.Join(root, "Beta", "notes.txt"))
	assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)

	_, err = svc.GetChapterImages(ctx, t.TempDir())
	assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)
}

func TestServiceNoRoot(t *testing.T) {
	svc := New(Config{ManifestPath: filepath.Join(t.TempDir(), manifest.DefaultFileName)})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	_, err := svc.GetEntries(context.Background())
	assert.True(t, errors.Is(err, ErrNoRoot))

	_, err = svc.Reindex(context.Background())
	assert.True(t, errors.Is(err, ErrNoRoot))
	assert.Equal(t, monitor.Unwatched, svc.MonitorMode())
}

func TestServiceCancelledRead(t *testing.T) {
	svc, _ := newLibrary(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.GetEntries(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestServiceResultsAreCopies(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()

	entries, err := svc.GetEntries(ctx)
	require.NoError(t, err)
	entries[0].Title = "mutated"

	again, err := svc.GetEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", again[0].Title)
}

func TestApplyIncrementalEvents(t *testing.T) {
	svc, root := newLibrary(t)
	ctx := context.Background()
	alpha := filepath.Join(root, "Alpha")
	beta := filepath.Join(root, "Beta")

	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	t.Run("added chapter recounts entry", func(t *testing.T) {
		chapter := filepath.Join(alpha, "ch3.cbz")
		writeZip(t, chapter, map[string]string{"1.jpg": "c1"})

		svc.apply(ctx, monitor.ChangeEvent{Kind: monitor.Added, FullPath: chapter, EntryPath: alpha})

		entry, err := svc.GetEntry(ctx, alpha)
		require.NoError(t, err)
		assert.Equal(t, 3, entry.ChapterCount)
		assert.Equal(t, monitor.Added, (<-events).Kind)
	})

	t.Run("removed entry directory", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(beta))

		svc.apply(ctx, monitor.ChangeEvent{Kind: monitor.Removed, FullPath: beta, EntryPath: beta})

		_, err := svc.GetEntry(ctx, beta)
		assert.True(t, errors.Is(err, ErrEntryNotFound))
		_, ok := svc.Manifest().TryGet(beta)
		assert.False(t, ok)
		assert.Equal(t, monitor.Removed, (<-events).Kind)
	})

	t.Run("unresolved event reindexes", func(t *testing.T) {
		gamma := filepath.Join(root, "Gamma")
		writeFile(t, filepath.Join(gamma, "1.png"), "g")

		svc.apply(ctx, monitor.ChangeEvent{Kind: monitor.Added, FullPath: gamma})

		entry, err := svc.GetEntry(ctx, gamma)
		require.NoError(t, err)
		assert.Equal(t, 1, entry.ChapterCount)
		assert.Equal(t, monitor.Reset, (<-events).Kind)
	})
}

func TestRootEntrySplitsOnNewSeries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1.jpg"), "loose")

	svc := New(Config{
		Root:          root,
		ManifestPath:  filepath.Join(t.TempDir(), manifest.DefaultFileName),
		PollInterval:  time.Hour,
		FlushInterval: time.Hour,
		ForcePolling:  true,
	})
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	entries, err := svc.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, root, entries[0].Path)

	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	series := filepath.Join(root, "Series")
	writeFile(t, filepath.Join(series, "1.jpg"), "s1")
	svc.apply(ctx, monitor.ChangeEvent{Kind: monitor.Added, FullPath: series, EntryPath: root})

	entries, err = svc.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, series, entries[0].Path)
	assert.Equal(t, monitor.Reset, (<-events).Kind)

	_, ok := svc.Manifest().TryGet(root)
	assert.False(t, ok, "root row should be pruned")
}

func TestPollingChangeTriggersReindex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Alpha", "1.jpg"), "a")

	svc := New(Config{
		Root:         root,
		ManifestPath: filepath.Join(t.TempDir(), manifest.DefaultFileName),
		PollInterval: 20 * time.Millisecond,
		ForcePolling: true,
	})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	writeFile(t, filepath.Join(root, "Beta", "1.jpg"), "b")

	assert.Eventually(t, func() bool {
		entries, err := svc.GetEntries(context.Background())
		return err == nil && len(entries) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSetRootRebuilds(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()

	other := t.TempDir()
	writeFile(t, filepath.Join(other, "Zeta", "1.jpg"), "z")

	require.NoError(t, svc.SetRoot(ctx, other))
	assert.Equal(t, other, svc.Root())

	entries, err := svc.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Zeta", entries[0].Title)

	require.NoError(t, svc.SetRoot(ctx, ""))
	_, err = svc.GetEntries(ctx)
	assert.True(t, errors.Is(err, ErrNoRoot))
}

type fakeProvider struct {
	root    string
	changes chan string
}

func (p *fakeProvider) Root() string           { return p.root }
func (p *fakeProvider) Changes() <-chan string { return p.changes }

func TestRunAppliesProviderChanges(t *testing.T) {
	svc, _ := newLibrary(t)

	next := t.TempDir()
	writeFile(t, filepath.Join(next, "Omega", "1.jpg"), "o")

	provider := &fakeProvider{changes: make(chan string, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, provider) }()

	provider.changes <- next
	assert.Eventually(t, func() bool { return svc.Root() == next && svc.IsReady() }, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestConcurrentReindexShareWork(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()

	results := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			entries, err := svc.Reindex(ctx)
			if err != nil {
				results <- -1
				return
			}
			results <- len(entries)
		}()
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, 2, <-results)
	}
}

func TestCloseFlushesManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Alpha", "1.jpg"), "a")
	manifestPath := filepath.Join(t.TempDir(), manifest.DefaultFileName)

	svc := New(Config{Root: root, ManifestPath: manifestPath, FlushInterval: time.Hour, ForcePolling: true})
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	reloaded := manifest.Load(manifestPath)
	_, ok := reloaded.TryGet(filepath.Join(root, "Alpha"))
	assert.True(t, ok, "manifest should hold the indexed entry after Close")

	events, _ := svc.Subscribe()
	_, open := <-events
	assert.False(t, open)

	assert.True(t, errors.Is(svc.SetRoot(context.Background(), root), ErrClosed))
}

func TestHealthStatus(t *testing.T) {
	svc, root := newLibrary(t)

	status := svc.GetHealthStatus()
	assert.True(t, status.Ready)
	assert.Equal(t, root, status.Root)
	assert.Equal(t, "polling", status.MonitorMode)
	assert.Equal(t, 2, status.Entries)
	assert.Equal(t, 3, status.Chapters)
	assert.Equal(t, 2, status.ManifestRows)
	assert.False(t, status.LastIndexed.IsZero())
}

func TestOpenPageWithoutService(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "ch1.cbz"), map[string]string{"p/1.png": "png bytes"})
	writeFile(t, filepath.Join(dir, "cover.jpg"), "jpeg bytes")

	page, err := OpenPage(filepath.Join(dir, "ch1.cbz") + "::p/1.png")
	require.NoError(t, err)
	body, err := io.ReadAll(page)
	require.NoError(t, err)
	require.NoError(t, page.Close())
	assert.Equal(t, "png bytes", string(body))
	assert.Equal(t, "image/png", page.MimeType)
	assert.Equal(t, "1.png", page.Name)

	page, err = OpenPage(filepath.Join(dir, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("jpeg bytes")), page.Size)
	require.NoError(t, page.Close())

	_, err = OpenPage(filepath.Join(dir, "missing.jpg"))
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = OpenPage(filepath.Join(dir, "ch1.cbz") + "::p/2.png")
	assert.Error(t, err)
}
