package container

import "errors"

var (
	// ErrUnsupportedFormat means the file's signature matched no supported
	// container format.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrMemberNotFound means the archive does not contain the requested
	// member; the catalog and the archive disagree.
	ErrMemberNotFound = errors.New("archive member not found")
	// ErrCorruptArchive means the archive's structure or checksums are
	// damaged or truncated.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrStaleReference means the cataloged path no longer exists on disk.
	ErrStaleReference = errors.New("stale source reference")
)
