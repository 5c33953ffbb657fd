package container

import (
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

type sevenZReader struct {
	rc *sevenzip.ReadCloser
}

func openSevenZ(path string) (Reader, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, path, err)
	}
	return &sevenZReader{rc: rc}, nil
}

func (r *sevenZReader) Format() Format { return FormatSevenZ }

func (r *sevenZReader) List() ([]string, error) {
	names := make([]string, 0, len(r.rc.File))
	for _, file := range r.rc.File {
		if file.FileInfo().IsDir() {
			continue
		}
		names = append(names, file.Name)
	}
	return names, nil
}

func (r *sevenZReader) Extract(member string) ([]byte, error) {
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

func (r *sevenZReader) Close() error { return r.rc.Close() }
