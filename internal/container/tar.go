package container

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// tarReader walks the archive per call, transparently unwrapping a gzip or
// zstd outer layer. Like RAR, tar is a stream format with no member index.
type tarReader struct {
	path   string
	format Format
}

func newTarReader(path string, format Format) Reader {
	return &tarReader{path: path, format: format}
}

func (r *tarReader) Format() Format { return r.format }

// open returns a tar.Reader over the (possibly compressed) stream plus a
// cleanup closing every layer.
func (r *tarReader) open() (*tar.Reader, func(), error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open tar %s: %w", r.path, err)
	}

	var stream io.Reader = file
	cleanup := func() { file.Close() }

	switch r.format {
	case FormatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		stream = gz
		cleanup = func() {
			gz.Close()
			file.Close()
		}
	case FormatTarZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		stream = zr
		cleanup = func() {
			zr.Close()
			file.Close()
		}
	}

	return tar.NewReader(stream), cleanup, nil
}

func (r *tarReader) List() ([]string, error) {
	reader, cleanup, err := r.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var names []string
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		names = append(names, header.Name)
	}
}

func (r *tarReader) Extract(member string) ([]byte, error) {
	reader, cleanup, err := r.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, member)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		if header.Typeflag != tar.TypeReg || header.Name != member {
			continue
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: read member %q: %v", ErrCorruptArchive, member, err)
		}
		return data, nil
	}
}

func (r *tarReader) Close() error { return nil }
