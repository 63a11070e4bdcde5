package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "JPEG long form", ext: ".jpeg", want: FileTypeImage},
		{name: "WebP image", ext: ".webp", want: FileTypeImage},
		{name: "CBZ archive", ext: ".cbz", want: FileTypeArchive},
		{name: "CBR archive", ext: ".cbr", want: FileTypeArchive},
		{name: "7z archive", ext: ".7z", want: FileTypeArchive},
		{name: "SVG is not a page", ext: ".svg", want: FileTypeOther},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestClassificationIsCaseInsensitive(t *testing.T) {
	tests := []struct {
		name      string
		isImage   bool
		isArchive bool
	}{
		{"PAGE001.JPG", true, false},
		{"cover.Png", true, false},
		{"Vol 01.CBZ", false, true},
		{"Vol 02.Rar", false, true},
		{"notes.txt", false, false},
		{"noextension", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImage(tt.name); got != tt.isImage {
				t.Errorf("IsImage(%q) = %v, want %v", tt.name, got, tt.isImage)
			}
			if got := IsArchive(tt.name); got != tt.isArchive {
				t.Errorf("IsArchive(%q) = %v, want %v", tt.name, got, tt.isArchive)
			}
		})
	}
}

func TestArchiveFormatFor(t *testing.T) {
	tests := []struct {
		name string
		want ArchiveFormat
	}{
		{"a.cbz", FormatZip},
		{"a.ZIP", FormatZip},
		{"a.cbr", FormatRar},
		{"a.rar", FormatRar},
		{"a.cb7", FormatSevenZip},
		{"a.7Z", FormatSevenZip},
		{"a.jpg", FormatUnknown},
	}

	for _, tt := range tests {
		if got := ArchiveFormatFor(tt.name); got != tt.want {
			t.Errorf("ArchiveFormatFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".cbz", "application/vnd.comicbook+zip"},
		{".unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".DS_Store") {
		t.Error("IsHidden(.DS_Store) = false, want true")
	}
	if IsHidden("Series") {
		t.Error("IsHidden(Series) = true, want false")
	}
}
