package archive

import (
	"strings"
)

// Separator joins the archive path and entry key in an image URL.
const Separator = "::"

// Descriptor identifies one page inside an archive.
type Descriptor struct {
	ArchivePath string
	EntryKey    string
}

// String returns the composite image URL "archivePath::entryKey".
func (d Descriptor) String() string {
	return d.ArchivePath + Separator + d.EntryKey
}

// ParseImageURL splits a composite image URL into a Descriptor. It returns
// false for bare file paths.
func ParseImageURL(imageURL string) (Descriptor, bool) {
	archivePath, key, ok := strings.Cut(imageURL, Separator)
	if !ok || archivePath == "" || key == "" {
		return Descriptor{}, false
	}
	return Descriptor{ArchivePath: archivePath, EntryKey: key}, true
}

// NormalizeKey converts a raw entry name into its canonical key. The second
// return value is false when the name is empty after normalization or
// contains a ".." segment.
func NormalizeKey(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")

	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", false
		}
		kept = append(kept, part)
	}

	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "/"), true
}
