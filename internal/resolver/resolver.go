package resolver

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"tosho/internal/assetcache"
	"tosho/internal/assets"
	"tosho/internal/catalog"
	"tosho/internal/container"
	"tosho/internal/logging"
	"tosho/internal/transform"
)

// Locator maps a page coordinate to the source its bytes live in.
type Locator interface {
	Locate(ctx context.Context, seriesID, chapterID int64, page int) (assets.SourceRef, error)
}

// Result is a resolved page image ready to serve.
type Result struct {
	Data        []byte
	ContentType string
	// CacheHit reports whether the bytes came straight from the cache store.
	CacheHit bool
}

// Resolver turns (series, chapter, page, spec) into served bytes: locate the
// source, fingerprint it, consult the cache, and on a miss coalesce the
// read-transform-store pipeline across concurrent callers.
type Resolver struct {
	locator Locator
	engine  *transform.Engine
	cache   *assetcache.Store
	logger  *slog.Logger
	group   singleflight.Group

	// Stubbed in tests.
	readSource func(assets.SourceRef) ([]byte, error)
	statSource func(assets.SourceRef) (os.FileInfo, error)
	apply      func([]byte, transform.Spec) ([]byte, string, error)
}

// New builds a resolver over the given locator, engine, and cache store.
func New(locator Locator, engine *transform.Engine, cache *assetcache.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		locator:    locator,
		engine:     engine,
		cache:      cache,
		logger:     logging.NewComponentLogger(logger, "resolver"),
		readSource: container.ReadSource,
		statSource: container.StatSource,
		apply:      engine.Apply,
	}
}

type computed struct {
	data        []byte
	contentType string
}

// Resolve serves one page image per the spec. Concurrent requests for the
// same fingerprint share a single computation; its result is handed to all
// of them, and the work is not canceled when one caller disconnects.
// Failed computations are never cached.
func (r *Resolver) Resolve(ctx context.Context, seriesID, chapterID int64, page int, spec transform.Spec) (Result, error) {
	ref, err := r.locator.Locate(ctx, seriesID, chapterID, page)
	if err != nil {
		return Result{}, err
	}
	return r.ResolveRef(ctx, ref, spec)
}

// ResolveRef serves a source reference the caller already holds (a series
// cover, for instance) through the same cache and single-flight path.
func (r *Resolver) ResolveRef(ctx context.Context, ref assets.SourceRef, spec transform.Spec) (Result, error) {
	info, err := r.statSource(ref)
	if err != nil {
		return Result{}, err
	}
	key := fingerprint(ref, spec, r.engine.Signature(), info.ModTime().UnixNano(), info.Size())

	if data, contentType, ok := r.cache.Get(ctx, key); ok {
		return Result{Data: data, ContentType: contentType, CacheHit: true}, nil
	}

	// The computation outlives any one caller: a disconnect must not starve
	// the other requests coalesced on the same key.
	detached := context.WithoutCancel(ctx)
	value, err, _ := r.group.Do(key, func() (any, error) {
		return r.compute(detached, ref, spec, key)
	})
	if err != nil {
		return Result{}, err
	}
	out := value.(computed)
	return Result{Data: out.data, ContentType: out.contentType}, nil
}

func (r *Resolver) compute(ctx context.Context, ref assets.SourceRef, spec transform.Spec, key string) (any, error) {
	raw, err := r.readSource(ref)
	if err != nil {
		return nil, err
	}
	data, contentType, err := r.apply(raw, spec)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", ref, err)
	}
	if err := r.cache.Put(ctx, key, data, contentType); err != nil {
		// A full or broken cache volume must not fail the request; serve
		// the bytes uncached.
		r.logger.Warn("cache write failed; serving uncached",
			logging.String("cache_key", key),
			logging.String("source", ref.String()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "resolver_cache_write_failed"),
			logging.String(logging.FieldErrorHint, "check cache directory permissions and free space"))
	}
	return computed{data: data, contentType: contentType}, nil
}

// fingerprint derives the cache key. It covers the source identity, the
// requested spec, the engine policy, and the source file's mtime+size, so
// edits to a source invalidate all of its cached transforms.
func fingerprint(ref assets.SourceRef, spec transform.Spec, engineSig string, mtimeNanos, size int64) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d", ref.String(), spec.Canonical(), engineSig, mtimeNanos, size)
	return hex.EncodeToString(h.Sum(nil))
}

// IsNotFound reports whether err means the requested page does not exist:
// no catalog mapping, a vanished source file, or a missing archive member.
func IsNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, container.ErrStaleReference) ||
		errors.Is(err, container.ErrMemberNotFound)
}

// IsUnreadable reports whether err means the page exists in the catalog but
// its bytes cannot be produced: corrupt or unsupported archives, undecodable
// images.
func IsUnreadable(err error) bool {
	return errors.Is(err, container.ErrCorruptArchive) ||
		errors.Is(err, container.ErrUnsupportedFormat) ||
		errors.Is(err, transform.ErrDecode) ||
		errors.Is(err, transform.ErrEncode)
}
