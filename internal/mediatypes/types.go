package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the role a filesystem entry plays in the library.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents a loose page image.
	FileTypeImage FileType = "image"
	// FileTypeArchive represents a chapter archive (cbz, cbr, cb7, ...).
	FileTypeArchive FileType = "archive"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ArchiveFormat identifies the container family of an archive.
type ArchiveFormat string

const (
	// FormatZip covers .zip and .cbz.
	FormatZip ArchiveFormat = "zip"
	// FormatRar covers .rar and .cbr.
	FormatRar ArchiveFormat = "rar"
	// FormatSevenZip covers .7z and .cb7.
	FormatSevenZip ArchiveFormat = "7z"
	// FormatUnknown is returned for anything else.
	FormatUnknown ArchiveFormat = ""
)

// ImageExtensions maps file extensions to whether they are page images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// ArchiveExtensions maps archive extensions to their container format.
var ArchiveExtensions = map[string]ArchiveFormat{
	".cbz": FormatZip,
	".zip": FormatZip,
	".cbr": FormatRar,
	".rar": FormatRar,
	".cb7": FormatSevenZip,
	".7z":  FormatSevenZip,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",

	".cbz": "application/vnd.comicbook+zip",
	".zip": "application/zip",
	".cbr": "application/vnd.comicbook-rar",
	".rar": "application/vnd.rar",
	".cb7": "application/x-cb7",
	".7z":  "application/x-7z-compressed",
}

// Ext returns the lowercased extension of name, including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if _, ok := ArchiveExtensions[ext]; ok {
		return FileTypeArchive
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsImage reports whether name has a page image extension, case-insensitively.
func IsImage(name string) bool {
	return ImageExtensions[Ext(name)]
}

// IsArchive reports whether name has a chapter archive extension, case-insensitively.
func IsArchive(name string) bool {
	_, ok := ArchiveExtensions[Ext(name)]
	return ok
}

// ArchiveFormatFor returns the container format implied by the extension of name.
func ArchiveFormatFor(name string) ArchiveFormat {
	return ArchiveExtensions[Ext(name)]
}

// IsHidden reports whether a file or directory name is hidden (dot-prefixed).
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
