package indexer

import (
	"os"
	"path/filepath"
	"sync"

	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
	"manga-library/internal/mediatypes"
	"manga-library/internal/metrics"
	"manga-library/internal/naturalsort"
)

// DirectoryScanResult classifies the immediate children of one directory.
// All paths are absolute and naturally sorted.
type DirectoryScanResult struct {
	ArchiveFiles   []string
	ImageFiles     []string
	Subdirectories []string
}

// HasChapterFiles reports whether the directory directly holds archives or
// images.
func (r DirectoryScanResult) HasChapterFiles() bool {
	return len(r.ArchiveFiles) > 0 || len(r.ImageFiles) > 0
}

// ScanCache memoizes directory scans for the duration of one indexing pass.
// It must not be reused across passes; a later pass would see stale listings.
type ScanCache struct {
	mu      sync.Mutex
	results map[string]DirectoryScanResult
}

// NewScanCache returns an empty cache.
func NewScanCache() *ScanCache {
	return &ScanCache{results: make(map[string]DirectoryScanResult)}
}

// Scan returns the classified listing of dir, reading it on first use.
func (c *ScanCache) Scan(dir string) DirectoryScanResult {
	dir = filepath.Clean(dir)

	c.mu.Lock()
	res, ok := c.results[dir]
	c.mu.Unlock()
	if ok {
		return res
	}

	res = scanDirectory(dir)

	c.mu.Lock()
	// Keep the first result if another worker raced us to the same directory.
	if existing, ok := c.results[dir]; ok {
		res = existing
	} else {
		c.results[dir] = res
	}
	c.mu.Unlock()
	return res
}

// Len returns the number of directories scanned so far.
func (c *ScanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func scanDirectory(dir string) DirectoryScanResult {
	metrics.ScanDirectoriesTotal.Inc()

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("Skipping unreadable directory %s: %v", dir, err)
		metrics.ScanErrorsTotal.Inc()
		return DirectoryScanResult{}
	}

	var res DirectoryScanResult
	for _, entry := range entries {
		name := entry.Name()
		if mediatypes.IsHidden(name) {
			continue
		}
		path := filepath.Join(dir, name)

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			res.Subdirectories = append(res.Subdirectories, path)
			continue
		}

		switch mediatypes.GetFileType(mediatypes.Ext(name)) {
		case mediatypes.FileTypeArchive:
			res.ArchiveFiles = append(res.ArchiveFiles, path)
		case mediatypes.FileTypeImage:
			res.ImageFiles = append(res.ImageFiles, path)
		}
	}

	naturalsort.Strings(res.ArchiveFiles)
	naturalsort.Strings(res.ImageFiles)
	naturalsort.Strings(res.Subdirectories)
	return res
}
