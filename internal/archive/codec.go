package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/cases"

	"manga-library/internal/logging"
	"manga-library/internal/mediatypes"
	"manga-library/internal/metrics"
	"manga-library/internal/naturalsort"
)

var (
	// ErrEntryNotFound is returned by OpenEntry when no member matches the key.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrUnsupportedFormat is returned for files that are not zip, rar or 7z.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrEntryTooLarge is returned when a member exceeds MaxEntrySize.
	ErrEntryTooLarge = errors.New("archive entry too large")
)

// MaxEntrySize caps the decompressed size of a single page.
const MaxEntrySize int64 = 256 << 20

// foldKey returns the case-insensitive comparison form of an entry key.
// Casers carry state, so a fresh one is used per call.
func foldKey(key string) string {
	return cases.Fold().String(key)
}

func formatLabel(f mediatypes.ArchiveFormat) string {
	if f == mediatypes.FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// ListImageEntries returns the normalized keys of every image member of the
// archive in natural order. Directory members, non-image members, members
// whose name escapes the archive root and case-insensitive duplicates are
// left out; the first of a set of duplicates wins.
func ListImageEntries(archivePath string) ([]string, error) {
	c, format, err := openContainer(archivePath)
	if err != nil {
		metrics.ArchiveOpensTotal.WithLabelValues(formatLabel(format), "error").Inc()
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer c.Close()
	metrics.ArchiveOpensTotal.WithLabelValues(formatLabel(format), "success").Inc()

	var keys []string
	seen := make(map[string]struct{})

	err = c.walk(func(h header, _ func() (io.ReadCloser, error)) (bool, error) {
		if h.isDir {
			return false, nil
		}
		key, ok := NormalizeKey(h.name)
		if !ok {
			logging.Debug("Skipping unsafe archive entry %q in %s", h.name, archivePath)
			metrics.ArchiveEntriesRejected.WithLabelValues("traversal").Inc()
			return false, nil
		}
		if !mediatypes.IsImage(key) {
			metrics.ArchiveEntriesRejected.WithLabelValues("not_image").Inc()
			return false, nil
		}
		folded := foldKey(key)
		if _, dup := seen[folded]; dup {
			metrics.ArchiveEntriesRejected.WithLabelValues("duplicate").Inc()
			return false, nil
		}
		seen[folded] = struct{}{}
		keys = append(keys, key)
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", archivePath, err)
	}

	naturalsort.Strings(keys)
	return keys, nil
}

// OpenEntry reads one member fully into memory. The archive is opened for
// this call only and closed before returning.
func OpenEntry(d Descriptor) (*bytes.Reader, error) {
	start := time.Now()

	target, ok := NormalizeKey(d.EntryKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, d)
	}
	target = foldKey(target)

	c, format, err := openContainer(d.ArchivePath)
	if err != nil {
		metrics.ArchiveOpensTotal.WithLabelValues(formatLabel(format), "error").Inc()
		return nil, fmt.Errorf("open archive %s: %w", d.ArchivePath, err)
	}
	defer c.Close()
	metrics.ArchiveOpensTotal.WithLabelValues(formatLabel(format), "success").Inc()

	var data []byte
	found := false

	err = c.walk(func(h header, body func() (io.ReadCloser, error)) (bool, error) {
		if h.isDir {
			return false, nil
		}
		key, ok := NormalizeKey(h.name)
		if !ok || foldKey(key) != target {
			return false, nil
		}
		if h.size > MaxEntrySize {
			return true, fmt.Errorf("%w: %s (%d bytes)", ErrEntryTooLarge, d, h.size)
		}

		rc, err := body()
		if err != nil {
			return true, err
		}
		defer rc.Close()

		data, err = readLimited(rc, MaxEntrySize)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", d, err)
		}
		found = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, d)
	}

	metrics.ArchiveEntryReadDuration.Observe(time.Since(start).Seconds())
	metrics.ArchiveEntryBytes.Observe(float64(len(data)))
	return bytes.NewReader(data), nil
}

// readLimited reads r to EOF, failing with ErrEntryTooLarge past limit bytes.
// Declared sizes in archive headers are not trusted.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}
