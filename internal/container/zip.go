package container

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
)

type zipReader struct {
	rc *zip.ReadCloser
}

func openZIP(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, path, err)
		}
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	return &zipReader{rc: rc}, nil
}

func (r *zipReader) Format() Format { return FormatZIP }

func (r *zipReader) List() ([]string, error) {
	names := make([]string, 0, len(r.rc.File))
	for _, file := range r.rc.File {
		if file.FileInfo().IsDir() {
			continue
		}
		names = append(names, file.Name)
	}
	return names, nil
}

func (r *zipReader) Extract(member string) ([]byte, error) {
	for _, file := range r.rc.File {
		if file.Name != member || file.FileInfo().IsDir() {
			continue
		}
		entry, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open member %q: %v", ErrCorruptArchive, member, err)
		}
		defer entry.Close()
		data, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: read member %q: %v", ErrCorruptArchive, member, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, member)
}

func (r *zipReader) Close() error { return r.rc.Close() }
