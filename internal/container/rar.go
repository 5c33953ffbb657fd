package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// rarReader walks the archive per call: RAR is a stream format and the
// decoder exposes no random access, so List and Extract each open a fresh
// decoder positioned at the start.
type rarReader struct {
	path string
}

func newRARReader(path string) Reader {
	return &rarReader{path: path}
}

func (r *rarReader) Format() Format { return FormatRAR }

func (r *rarReader) List() ([]string, error) {
	rc, err := rardecode.OpenReader(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
	}
	defer rc.Close()

	var names []string
	for {
		header, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		if header.IsDir {
			continue
		}
		names = append(names, header.Name)
	}
}

func (r *rarReader) Extract(member string) ([]byte, error) {
	rc, err := rardecode.OpenReader(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
	}
	defer rc.Close()

	for {
		header, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, member)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, r.path, err)
		}
		if header.IsDir || header.Name != member {
			continue
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read member %q: %v", ErrCorruptArchive, member, err)
		}
		return data, nil
	}
}

func (r *rarReader) Close() error { return nil }
