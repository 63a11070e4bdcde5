// Package mediatypes provides the fixed extension tables used to classify
// library content.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains primitive types, constants,
// and pure utility functions with no external dependencies beyond the standard library.
//
// # File Types
//
//	mediatypes.FileTypeFolder  // Directories
//	mediatypes.FileTypeImage   // Page images (jpg, jpeg, png, gif, bmp, webp)
//	mediatypes.FileTypeArchive // Chapter archives (cbz, cbr, cb7, zip, rar, 7z)
//	mediatypes.FileTypeOther   // Everything else
//
// Both extension sets are fixed and matched case-insensitively:
//
//	if mediatypes.IsArchive(name) {
//	    format := mediatypes.ArchiveFormatFor(name) // FormatZip, FormatRar, FormatSevenZip
//	}
//
// # MIME Types
//
// Use GetMimeType to get the appropriate MIME type for HTTP responses:
//
//	mimeType := mediatypes.GetMimeType(mediatypes.Ext(name)) // e.g., "image/jpeg"
package mediatypes
