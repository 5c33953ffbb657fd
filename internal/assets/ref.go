// Package assets defines the source reference shared by the catalog, the
// container readers, and the resolver: where one page image's bytes live.
package assets

import (
	"errors"
	"fmt"
	"strings"
)

// SourceKind distinguishes plain files from archive members.
type SourceKind string

const (
	// KindPlain refers to an image stored as an ordinary file.
	KindPlain SourceKind = "plain"
	// KindArchived refers to an image stored as a member of an archive.
	KindArchived SourceKind = "archived"
)

// SourceRef identifies exactly one page image's origin. It is produced by
// the catalog and never mutated; all readers open it read-only.
type SourceRef struct {
	Kind SourceKind
	// Path is the image file for KindPlain, or the archive file for
	// KindArchived.
	Path string
	// Member is the archive member name; empty for KindPlain.
	Member string
}

// PlainRef builds a reference to an ordinary image file.
func PlainRef(path string) SourceRef {
	return SourceRef{Kind: KindPlain, Path: path}
}

// ArchivedRef builds a reference to a member inside an archive.
func ArchivedRef(path, member string) SourceRef {
	return SourceRef{Kind: KindArchived, Path: path, Member: member}
}

// Validate reports whether the reference is structurally usable.
func (r SourceRef) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return errors.New("source ref: empty path")
	}
	switch r.Kind {
	case KindPlain:
		if r.Member != "" {
			return errors.New("source ref: plain ref carries a member name")
		}
	case KindArchived:
		if strings.TrimSpace(r.Member) == "" {
			return errors.New("source ref: archived ref missing member name")
		}
	default:
		return fmt.Errorf("source ref: unknown kind %q", r.Kind)
	}
	return nil
}

// String renders a canonical, unambiguous form used in fingerprints and logs.
func (r SourceRef) String() string {
	if r.Kind == KindArchived {
		return fmt.Sprintf("%s:%s!%s", r.Kind, r.Path, r.Member)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.Path)
}
