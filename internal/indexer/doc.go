// Package indexer builds the list of manga entries found under a library
// root and resolves their chapters and pages.
//
// A directory "has chapter content" when it directly holds archive or image
// files, or when one of its immediate subdirectories does. Each qualifying
// child of the root becomes an entry; a non-qualifying child is looked into
// one level deeper, so both of these layouts work:
//
//	Library/Series/ch01.cbz
//	Library/Publisher/Series/Vol1/001.jpg
//
// If nothing qualifies but the root itself holds chapter files, the root is
// the only entry.
//
// Chapter counts are cached in a manifest.Store keyed by the entry
// directory's mtime. A cache hit skips enumerating the entry entirely.
//
// Directory listings are memoized in a ScanCache that lives for one
// IndexRoot call. Enumeration failures yield an empty listing for that
// directory and never abort the walk.
//
// Supported file types:
//   - Images: jpg, jpeg, png, gif, bmp, webp
//   - Archives: cbz, zip, cbr, rar, cb7, 7z
//
// Hidden files and directories (prefixed with '.') are excluded.
package indexer
