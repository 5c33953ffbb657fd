package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"tosho/internal/fileutil"
	"tosho/internal/logging"
)

const (
	// freeSpaceFloor is the minimum free-space ratio allowed on the cache
	// volume before eviction kicks in regardless of the byte budget.
	freeSpaceFloor = 0.05

	indexFileName = "index.json"
	entrySuffix   = ".bin"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// rootMissing reports whether err means the cache root is not there yet,
// including a parent path component that is not a directory.
func rootMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENOTDIR)
}

// Entry describes one cached artifact in the index.
type Entry struct {
	Key         string    `json:"key"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	// AccessedAt is bucketed to the hour so repeated reads within the same
	// hour do not rewrite the index.
	AccessedAt time.Time `json:"accessed_at"`
}

// Stats describes current cache usage.
type Stats struct {
	Entries      int     `json:"entries"`
	TotalBytes   int64   `json:"total_bytes"`
	MaxBytes     int64   `json:"max_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
	FreeRatio    float64 `json:"free_ratio"`
}

// Store is a content-addressed disk cache for transformed page images. One
// file per key under root, plus a JSON index carrying size, content type,
// and coarse access times. The index is advisory: when it is absent or
// unreadable the store rebuilds it from a directory scan.
type Store struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
	statfs   statfsFunc

	mu      sync.RWMutex
	entries map[string]Entry
}

// Open prepares a store rooted at dir with the given byte budget. A missing
// root means an empty cache; the directory is created on first Put.
func Open(dir string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	root := strings.TrimSpace(dir)
	if root == "" {
		return nil, errors.New("assetcache: empty cache directory")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("assetcache: invalid byte budget %d", maxBytes)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		root:     root,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "assetcache"),
		statfs:   realStatfs,
		entries:  make(map[string]Entry),
	}
	if err := s.loadIndex(); err != nil {
		s.logger.Warn("cache index unreadable; rebuilding from directory scan",
			logging.Error(err),
			logging.String(logging.FieldEventType, "assetcache_index_rebuild"))
		if err := s.rebuildIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the cached bytes and content type for key. A hit refreshes
// the entry's access hour; misses are not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, bool) {
	s.mu.RLock()
	entry, found := s.entries[key]
	s.mu.RUnlock()
	if !found {
		return nil, "", false
	}

	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		// The file vanished underneath the index; drop the entry.
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache entry unreadable; treating as miss",
				logging.String("cache_key", key),
				logging.Error(err))
		}
		return nil, "", false
	}

	s.touch(key)
	_ = ctx
	return data, entry.ContentType, true
}

// Put stores data under key. It is idempotent: an existing entry with the
// same size is left untouched. The write triggers eviction when it pushes
// the cache over its limits.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("assetcache: empty cache key")
	}

	s.mu.Lock()
	if existing, found := s.entries[key]; found && existing.SizeBytes == int64(len(data)) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("assetcache: create cache root: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.entryPath(key), data, 0o644); err != nil {
		return fmt.Errorf("assetcache: write entry: %w", err)
	}

	now := time.Now()
	entry := Entry{
		Key:         key,
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
		CreatedAt:   now,
		AccessedAt:  now.Truncate(time.Hour),
	}
	s.mu.Lock()
	s.entries[key] = entry
	err := s.saveIndexLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug("stored cache entry",
		logging.String("cache_key", key),
		logging.Int64("entry_size_bytes", entry.SizeBytes))

	return s.EvictIfOverBudget(ctx)
}

// EvictIfOverBudget removes least-recently-accessed entries until the cache
// fits its byte budget and the volume's free-space floor is satisfied.
func (s *Store) EvictIfOverBudget(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	victims := s.sortedByAccessLocked()
	total := int64(0)
	for _, entry := range victims {
		total += entry.SizeBytes
	}

	evicted := 0
	for len(victims) > 0 {
		freeOK, err := s.freeSpaceOK()
		if err != nil {
			return err
		}
		if total <= s.maxBytes && freeOK {
			break
		}
		oldest := victims[0]
		victims = victims[1:]
		if err := os.Remove(s.entryPath(oldest.Key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("assetcache: remove %q: %w", oldest.Key, err)
		}
		delete(s.entries, oldest.Key)
		total -= oldest.SizeBytes
		evicted++
		s.logger.InfoContext(ctx, "evicted cache entry",
			logging.String("cache_key", oldest.Key),
			logging.Int64("entry_size_bytes", oldest.SizeBytes),
			logging.String(logging.FieldEventType, "assetcache_evicted"))
	}
	if evicted > 0 {
		return s.saveIndexLocked()
	}
	return nil
}

// Clear removes every entry and the index.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if err := os.Remove(s.entryPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("assetcache: remove %q: %w", key, err)
		}
		delete(s.entries, key)
	}
	s.logger.InfoContext(ctx, "cleared asset cache")
	return s.saveIndexLocked()
}

// Stats reports usage and free-space figures for the cache volume.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	entries := len(s.entries)
	var total int64
	for _, entry := range s.entries {
		total += entry.SizeBytes
	}
	s.mu.RUnlock()

	st := Stats{Entries: entries, TotalBytes: total, MaxBytes: s.maxBytes, FreeRatio: 1.0}
	totalFS, freeFS, err := s.statfs(s.root)
	if err != nil {
		if rootMissing(err) {
			// Root not created yet; an empty cache has no volume stats.
			return st, nil
		}
		return st, fmt.Errorf("assetcache: statfs: %w", err)
	}
	st.TotalFSBytes = totalFS
	st.FreeBytes = freeFS
	if totalFS > 0 {
		st.FreeRatio = float64(freeFS) / float64(totalFS)
	}
	return st, nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, key+entrySuffix)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, indexFileName)
}

// touch advances the entry's access hour, persisting the index only when
// the bucket actually changed.
func (s *Store) touch(key string) {
	bucket := time.Now().Truncate(time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.entries[key]
	if !found || entry.AccessedAt.Equal(bucket) {
		return
	}
	entry.AccessedAt = bucket
	s.entries[key] = entry
	if err := s.saveIndexLocked(); err != nil {
		s.logger.Warn("failed to persist access time", logging.Error(err))
	}
}

func (s *Store) sortedByAccessLocked() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AccessedAt.Equal(entries[j].AccessedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].AccessedAt.Before(entries[j].AccessedAt)
	})
	return entries
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if rootMissing(err) {
			return s.rebuildIndex()
		}
		return fmt.Errorf("assetcache: read index: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("assetcache: parse index: %w", err)
	}
	index := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) == "" {
			continue
		}
		index[entry.Key] = entry
	}
	s.entries = index
	return nil
}

// rebuildIndex reconstitutes the index from the files on disk. Content
// types are unknown after a rebuild, so rebuilt entries sniff as generic
// bytes; they are still evictable and still count against the budget.
func (s *Store) rebuildIndex() error {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if rootMissing(err) {
			s.entries = make(map[string]Entry)
			return nil
		}
		return fmt.Errorf("assetcache: scan cache root: %w", err)
	}
	index := make(map[string]Entry)
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, entrySuffix) {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, entrySuffix)
		index[key] = Entry{
			Key:         key,
			SizeBytes:   info.Size(),
			ContentType: "application/octet-stream",
			CreatedAt:   info.ModTime(),
			AccessedAt:  info.ModTime().Truncate(time.Hour),
		}
	}
	s.entries = index
	return s.saveIndexLocked()
}

func (s *Store) saveIndexLocked() error {
	if len(s.entries) == 0 {
		if err := os.Remove(s.indexPath()); err != nil && !rootMissing(err) {
			return fmt.Errorf("assetcache: remove index: %w", err)
		}
		return nil
	}
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("assetcache: marshal index: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("assetcache: create cache root: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("assetcache: write index: %w", err)
	}
	return nil
}

func (s *Store) freeSpaceOK() (bool, error) {
	total, free, err := s.statfs(s.root)
	if err != nil {
		if rootMissing(err) {
			return true, nil
		}
		return false, fmt.Errorf("assetcache: statfs: %w", err)
	}
	if total == 0 {
		return true, nil
	}
	return float64(free)/float64(total) >= freeSpaceFloor, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
