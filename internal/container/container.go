package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Format identifies a supported archive container format.
type Format string

const (
	FormatZIP     Format = "zip"
	FormatRAR     Format = "rar"
	FormatSevenZ  Format = "7z"
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarZstd Format = "tar.zst"
)

// Reader is the uniform capability over one archive file: list its regular
// members and extract one member's bytes. Implementations are not safe for
// concurrent use; callers open a reader, perform one operation sequence, and
// close it. Readers never write to the underlying file.
type Reader interface {
	// Format reports the detected container format.
	Format() Format
	// List returns the names of all regular-file members, in archive order.
	List() ([]string, error)
	// Extract decompresses exactly one member into memory. The member name
	// must match exactly.
	Extract(member string) ([]byte, error)
	io.Closer
}

var magicNumbers = []struct {
	format Format
	offset int
	magic  []byte
}{
	{FormatZIP, 0, []byte{0x50, 0x4B, 0x03, 0x04}},
	{FormatRAR, 0, []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}},
	{FormatSevenZ, 0, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}},
	{FormatTarGz, 0, []byte{0x1F, 0x8B}},
	{FormatTarZstd, 0, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	// POSIX tar carries its magic inside the first header block.
	{FormatTar, 257, []byte("ustar")},
}

// DetectFormat sniffs the archive format from the file's leading bytes.
// Extensions are deliberately ignored so misnamed files still open.
func DetectFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrStaleReference, path)
		}
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	header := make([]byte, 512)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read archive header: %w", err)
	}
	header = header[:n]

	for _, candidate := range magicNumbers {
		end := candidate.offset + len(candidate.magic)
		if end > len(header) {
			continue
		}
		if bytes.Equal(header[candidate.offset:end], candidate.magic) {
			return candidate.format, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Open detects the archive format by signature and returns a reader for it.
// The reader must be closed after a single extraction sequence; handles are
// never pooled or shared between requests.
func Open(path string) (Reader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatZIP:
		return openZIP(path)
	case FormatRAR:
		return newRARReader(path), nil
	case FormatSevenZ:
		return openSevenZ(path)
	case FormatTar, FormatTarGz, FormatTarZstd:
		return newTarReader(path, format), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
