package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"tosho/internal/assets"
)

// ReadSource reads the raw bytes a SourceRef points at. Plain refs are read
// directly; archived refs open the archive, extract the one member, and
// close the handle. The source is only ever opened for reading.
func ReadSource(ref assets.SourceRef) ([]byte, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	switch ref.Kind {
	case assets.KindPlain:
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrStaleReference, ref.Path)
			}
			return nil, fmt.Errorf("read source %s: %w", ref.Path, err)
		}
		return data, nil
	case assets.KindArchived:
		reader, err := Open(ref.Path)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return reader.Extract(ref.Member)
	default:
		return nil, fmt.Errorf("source ref: unknown kind %q", ref.Kind)
	}
}

// StatSource stats the file backing a SourceRef (the archive file itself for
// archived refs). The resolver uses this for fingerprint freshness.
func StatSource(ref assets.SourceRef) (os.FileInfo, error) {
	info, err := os.Stat(ref.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStaleReference, ref.Path)
		}
		return nil, fmt.Errorf("stat source %s: %w", ref.Path, err)
	}
	return info, nil
}
