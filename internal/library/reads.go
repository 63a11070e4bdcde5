package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"manga-library/internal/archive"
	"manga-library/internal/filesystem"
	"manga-library/internal/indexer"
	"manga-library/internal/mediatypes"
)

type result[T any] struct {
	val T
	err error
}

// runAsync runs fn on its own goroutine and waits for it or for ctx.
func runAsync[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func cloneEntries(in []indexer.Entry) []indexer.Entry {
	out := make([]indexer.Entry, len(in))
	copy(out, in)
	return out
}

// GetEntries returns every entry, naturally sorted by title.
func (s *Service) GetEntries(ctx context.Context) ([]indexer.Entry, error) {
	return runAsync(ctx, func() ([]indexer.Entry, error) {
		s.mu.RLock()
		if s.root == "" {
			s.mu.RUnlock()
			return nil, ErrNoRoot
		}
		entries := make([]indexer.Entry, 0, len(s.entries))
		for _, e := range s.entries {
			entries = append(entries, e)
		}
		s.mu.RUnlock()

		indexer.SortEntries(entries)
		return entries, nil
	})
}

// GetEntry returns the entry tracked at path.
func (s *Service) GetEntry(ctx context.Context, path string) (indexer.Entry, error) {
	return runAsync(ctx, func() (indexer.Entry, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.root == "" {
			return indexer.Entry{}, ErrNoRoot
		}
		e, ok := s.entries[filepath.Clean(path)]
		if !ok {
			return indexer.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
		}
		return e, nil
	})
}

// owningEntry returns the tracked entry directory containing path.
func (s *Service) owningEntry(path string) (string, error) {
	path = filepath.Clean(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == "" {
		return "", ErrNoRoot
	}

	best := ""
	for dir := range s.entries {
		if len(dir) > len(best) && within(path, dir) {
			best = dir
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return best, nil
}

// GetChapters lists the chapters of the entry at path.
func (s *Service) GetChapters(ctx context.Context, path string) ([]indexer.Chapter, error) {
	entry, err := s.GetEntry(ctx, path)
	if err != nil {
		return nil, err
	}
	return runAsync(ctx, func() ([]indexer.Chapter, error) {
		return s.indexer.Chapters(ctx, entry.Path)
	})
}

// GetChapterImages lists the pages of a chapter belonging to a tracked entry.
func (s *Service) GetChapterImages(ctx context.Context, chapterURL string) ([]indexer.ChapterImage, error) {
	if _, err := s.owningEntry(chapterURL); err != nil {
		return nil, err
	}
	return runAsync(ctx, func() ([]indexer.ChapterImage, error) {
		return s.indexer.ChapterImages(ctx, chapterURL)
	})
}

// Page is an opened page image.
type Page struct {
	io.ReadSeeker
	io.Closer

	Name     string
	MimeType string
	ModTime  time.Time
	Size     int64
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenImage opens a page by its image URL: a bare image path or an
// "archivePath::entryKey" composite. The page must belong to a tracked entry.
// The caller must Close the returned page.
func (s *Service) OpenImage(ctx context.Context, imageURL string) (*Page, error) {
	d, inArchive := archive.ParseImageURL(imageURL)
	owner := filepath.Clean(imageURL)
	if inArchive {
		owner = d.ArchivePath
	}
	if _, err := s.owningEntry(owner); err != nil {
		return nil, err
	}

	if inArchive {
		return runAsync(ctx, func() (*Page, error) {
			return OpenPage(imageURL)
		})
	}
	// Opened inline; an abandoned async open would leak the handle.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return OpenPage(imageURL)
}

// OpenPage opens a page image by URL without checking that it belongs to a
// library entry. Archive pages are read fully into memory.
func OpenPage(imageURL string) (*Page, error) {
	if d, ok := archive.ParseImageURL(imageURL); ok {
		return openArchivePage(d)
	}
	return openFilePage(filepath.Clean(imageURL))
}

func openArchivePage(d archive.Descriptor) (*Page, error) {
	if !mediatypes.IsArchive(d.ArchivePath) || !mediatypes.IsImage(d.EntryKey) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, d)
	}
	info, err := filesystem.StatWithRetry(d.ArchivePath, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, d)
	}
	r, err := archive.OpenEntry(d)
	if err != nil {
		return nil, err
	}
	return &Page{
		ReadSeeker: r,
		Closer:     nopCloser{},
		Name:       filepath.Base(d.EntryKey),
		MimeType:   mediatypes.GetMimeType(mediatypes.Ext(d.EntryKey)),
		ModTime:    info.ModTime(),
		Size:       r.Size(),
	}, nil
}

func openFilePage(path string) (*Page, error) {
	if !mediatypes.IsImage(path) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return &Page{
		ReadSeeker: f,
		Closer:     f,
		Name:       filepath.Base(path),
		MimeType:   mediatypes.GetMimeType(mediatypes.Ext(path)),
		ModTime:    info.ModTime(),
		Size:       info.Size(),
	}, nil
}
