package indexer

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"manga-library/internal/archive"
)

// Entry is one manga series tracked by the index.
type Entry struct {
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	ChapterCount int       `json:"chapterCount"`
	LastModified time.Time `json:"lastModified"`
	GroupKey     string    `json:"groupKey"`
}

// Chapter is one readable unit of an entry: an archive file, a subdirectory
// of images, or the entry directory itself.
type Chapter struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Number int    `json:"number"`
}

// ChapterImage identifies one page. Archive is set only for pages stored
// inside an archive, in which case ImageURL is the composite
// "archivePath::entryKey" form.
type ChapterImage struct {
	ImageURL string              `json:"imageUrl"`
	Archive  *archive.Descriptor `json:"-"`
}

// GroupKeyFor returns the index bucket for a title: its first letter in
// upper case, or "#" for titles starting with anything else.
func GroupKeyFor(title string) string {
	for _, r := range strings.TrimSpace(title) {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
		return "#"
	}
	return "#"
}

func titleFromPath(path string) string {
	return filepath.Base(path)
}

// chapterTitle strips the archive extension from a chapter file name.
func chapterTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
