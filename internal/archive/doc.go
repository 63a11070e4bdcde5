// Package archive reads page images out of chapter archives (cbz/zip,
// cbr/rar, cb7/7z) without extracting them to disk.
//
// Pages are addressed by a Descriptor, the pair of archive path and a
// normalized entry key, rendered as "archivePath::entryKey". Keys use "/"
// separators, never start with "./" or "/", and never contain a ".."
// segment; entries that would normalize to such a key are dropped from
// listings and can not be opened.
//
// Every call opens the archive afresh and closes it before returning, so no
// file handle outlives a call and concurrent reads need no coordination:
//
//	keys, err := archive.ListImageEntries(path)
//	page, err := archive.OpenEntry(archive.Descriptor{ArchivePath: path, EntryKey: keys[0]})
package archive
