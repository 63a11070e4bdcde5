package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"

	"manga-library/internal/filesystem"
	"manga-library/internal/mediatypes"
)

// header describes one archive member as seen while walking a container.
type header struct {
	name  string
	isDir bool
	size  int64 // uncompressed size, -1 when unknown
}

// visitFunc is called once per member. body is only valid for the duration
// of the call; RAR archives are solid streams and can not be rewound.
type visitFunc func(h header, body func() (io.ReadCloser, error)) (stop bool, err error)

type container interface {
	walk(visit visitFunc) error
	Close() error
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	rarMagic      = []byte("Rar!\x1a\x07")
	sevenZipMagic = []byte("7z\xbc\xaf\x27\x1c")
)

// sniffFormat detects the container format from the first bytes of the file.
func sniffFormat(head []byte) mediatypes.ArchiveFormat {
	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return mediatypes.FormatZip
	case bytes.HasPrefix(head, rarMagic):
		return mediatypes.FormatRar
	case bytes.HasPrefix(head, sevenZipMagic):
		return mediatypes.FormatSevenZip
	default:
		return mediatypes.FormatUnknown
	}
}

// openContainer opens path, preferring the format found in the file header
// over the one implied by the extension; misnamed .cbz files holding RAR
// data are common.
func openContainer(path string) (container, mediatypes.ArchiveFormat, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, mediatypes.FormatUnknown, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mediatypes.FormatUnknown, err
	}

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	format := sniffFormat(head[:n])
	if format == mediatypes.FormatUnknown {
		format = mediatypes.ArchiveFormatFor(path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, format, err
	}

	var c container
	switch format {
	case mediatypes.FormatZip:
		c, err = newZipContainer(f, info.Size())
	case mediatypes.FormatRar:
		c, err = newRarContainer(f)
	case mediatypes.FormatSevenZip:
		c, err = newSevenZipContainer(f, info.Size())
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		f.Close()
		return nil, format, err
	}
	return c, format, nil
}

type zipContainer struct {
	file *os.File
	zr   *zip.Reader
}

func newZipContainer(f *os.File, size int64) (*zipContainer, error) {
	zr, err := zip.NewReader(f, size)
	// Unsafe names are filtered per entry by NormalizeKey.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("read zip directory: %w", err)
	}
	return &zipContainer{file: f, zr: zr}, nil
}

func (z *zipContainer) walk(visit visitFunc) error {
	for _, zf := range z.zr.File {
		h := header{
			name:  zf.Name,
			isDir: zf.FileInfo().IsDir(),
			size:  int64(zf.UncompressedSize64),
		}
		stop, err := visit(h, zf.Open)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

func (z *zipContainer) Close() error {
	return z.file.Close()
}

type rarContainer struct {
	file *os.File
	rr   *rardecode.Reader
}

func newRarContainer(f *os.File) (*rarContainer, error) {
	rr, err := rardecode.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read rar header: %w", err)
	}
	return &rarContainer{file: f, rr: rr}, nil
}

func (r *rarContainer) walk(visit visitFunc) error {
	for {
		fh, err := r.rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read rar entry: %w", err)
		}

		size := fh.UnPackedSize
		if fh.UnKnownSize {
			size = -1
		}
		h := header{name: fh.Name, isDir: fh.IsDir, size: size}
		body := func() (io.ReadCloser, error) {
			return io.NopCloser(r.rr), nil
		}

		stop, err := visit(h, body)
		if err != nil || stop {
			return err
		}
	}
}

func (r *rarContainer) Close() error {
	return r.file.Close()
}

type sevenZipContainer struct {
	file *os.File
	zr   *sevenzip.Reader
}

func newSevenZipContainer(f *os.File, size int64) (*sevenZipContainer, error) {
	zr, err := sevenzip.NewReader(f, size)
	if err != nil {
		return nil, fmt.Errorf("read 7z header: %w", err)
	}
	return &sevenZipContainer{file: f, zr: zr}, nil
}

func (s *sevenZipContainer) walk(visit visitFunc) error {
	for _, sf := range s.zr.File {
		h := header{
			name:  sf.Name,
			isDir: sf.FileInfo().IsDir(),
			size:  int64(sf.UncompressedSize),
		}
		stop, err := visit(h, sf.Open)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

func (s *sevenZipContainer) Close() error {
	return s.file.Close()
}
