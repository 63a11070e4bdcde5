package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-library/internal/mediatypes"
)

type zipMember struct {
	name string
	body string
}

func writeZip(t *testing.T, path string, members []zipMember) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		if m.body != "" {
			_, err = io.WriteString(w, m.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"001.jpg", "001.jpg", true},
		{"./001.jpg", "001.jpg", true},
		{"/001.jpg", "001.jpg", true},
		{`sub\002.png`, "sub/002.png", true},
		{"sub//003.png", "sub/003.png", true},
		{"././a/./b.jpg", "a/b.jpg", true},
		{"../../evil.jpg", "", false},
		{"a/../b.jpg", "", false},
		{`..\evil.jpg`, "", false},
		{"", "", false},
		{"./", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeKey(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeKey(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := Descriptor{ArchivePath: "/lib/Series/ch1.cbz", EntryKey: "pages/001.jpg"}
	assert.Equal(t, "/lib/Series/ch1.cbz::pages/001.jpg", d.String())

	parsed, ok := ParseImageURL(d.String())
	require.True(t, ok)
	assert.Equal(t, d, parsed)

	_, ok = ParseImageURL("/lib/Series/001.jpg")
	assert.False(t, ok, "bare file path should not parse as an archive descriptor")

	_, ok = ParseImageURL("::001.jpg")
	assert.False(t, ok)
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		head string
		want mediatypes.ArchiveFormat
	}{
		{"zip", "PK\x03\x04rest", mediatypes.FormatZip},
		{"empty zip", "PK\x05\x06", mediatypes.FormatZip},
		{"rar4", "Rar!\x1a\x07\x00", mediatypes.FormatRar},
		{"rar5", "Rar!\x1a\x07\x01\x00", mediatypes.FormatRar},
		{"7z", "7z\xbc\xaf\x27\x1c\x00\x04", mediatypes.FormatSevenZip},
		{"text", "hello", mediatypes.FormatUnknown},
		{"short", "P", mediatypes.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffFormat([]byte(tt.head)); got != tt.want {
				t.Errorf("sniffFormat(%q) = %q, want %q", tt.head, got, tt.want)
			}
		})
	}
}

func TestListImageEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.cbz")
	writeZip(t, path, []zipMember{
		{name: "10.jpg", body: "ten"},
		{name: "2.jpg", body: "two"},
		{name: "1.jpg", body: "one"},
		{name: "extras/"},
		{name: "notes.txt", body: "not a page"},
		{name: "../../evil.jpg", body: "escape"},
		{name: "1.JPG", body: "duplicate"},
		{name: "./3.png", body: "three"},
	})

	keys, err := ListImageEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg", "2.jpg", "3.png", "10.jpg"}, keys)
}

func TestListImageEntriesEmptyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cbz")
	writeZip(t, path, nil)

	keys, err := ListImageEntries(path)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestListImageEntriesCorrupt(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "broken.cbz")
	require.NoError(t, os.WriteFile(corrupt, []byte("PK\x03\x04 truncated"), 0o644))
	_, err := ListImageEntries(corrupt)
	assert.Error(t, err)

	plain := filepath.Join(dir, "notes.cbt")
	require.NoError(t, os.WriteFile(plain, []byte("plain text"), 0o644))
	_, err = ListImageEntries(plain)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "got %v", err)

	_, err = ListImageEntries(filepath.Join(dir, "missing.cbz"))
	assert.Error(t, err)
}

func TestListImageEntriesSniffsMisnamedArchive(t *testing.T) {
	// Zip data behind a .cbr extension.
	path := filepath.Join(t.TempDir(), "chapter.cbr")
	writeZip(t, path, []zipMember{{name: "1.jpg", body: "one"}})

	keys, err := ListImageEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg"}, keys)
}

func TestOpenEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapter.cbz")
	writeZip(t, path, []zipMember{
		{name: "3.jpg", body: "page three"},
		{name: "1.jpg", body: "page one"},
		{name: "2.jpg", body: "page two"},
		{name: `sub\Cover.PNG`, body: "cover"},
	})

	keys, err := ListImageEntries(path)
	require.NoError(t, err)
	require.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg", "sub/Cover.PNG"}, keys)

	want := []string{"page one", "page two", "page three", "cover"}
	for i, key := range keys {
		r, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: key})
		require.NoError(t, err, key)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, want[i], string(data), key)
	}

	t.Run("case-insensitive match", func(t *testing.T) {
		r, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: "SUB/cover.png"})
		require.NoError(t, err)
		data, _ := io.ReadAll(r)
		assert.Equal(t, "cover", string(data))
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: "99.jpg"})
		assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)
	})

	t.Run("traversal key", func(t *testing.T) {
		_, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: "../1.jpg"})
		assert.True(t, errors.Is(err, ErrEntryNotFound), "got %v", err)
	})
}

// The fixtures hold 3.jpg, 1.jpg, 2.jpg, notes.txt and ../../evil.jpg in
// that order. pages.cbr is a RAR5 archive with stored members; pages.cb7 is
// LZMA-compressed.
func TestRarAndSevenZip(t *testing.T) {
	pages := map[string]string{
		"1.jpg": "page one",
		"2.jpg": "page two",
		"3.jpg": "page three",
	}

	for _, fixture := range []string{"pages.cbr", "pages.cb7"} {
		t.Run(fixture, func(t *testing.T) {
			path := filepath.Join("testdata", fixture)

			keys, err := ListImageEntries(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, keys)

			for _, key := range keys {
				r, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: key})
				require.NoError(t, err, key)
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, pages[key], string(data), key)
			}

			// Reading a later member skips the bodies before it.
			r, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: "2.JPG"})
			require.NoError(t, err)
			data, _ := io.ReadAll(r)
			assert.Equal(t, "page two", string(data))

			for _, key := range []string{"evil.jpg", "../../evil.jpg", "notes.jpg"} {
				_, err := OpenEntry(Descriptor{ArchivePath: path, EntryKey: key})
				assert.True(t, errors.Is(err, ErrEntryNotFound), "%s: got %v", key, err)
			}
		})
	}
}

func TestRarBehindZipExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "pages.cbr"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chapter.cbz")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	keys, err := ListImageEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, keys)
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = readLimited(strings.NewReader("123456"), 5)
	assert.True(t, errors.Is(err, ErrEntryTooLarge))
}
