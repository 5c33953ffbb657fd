package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tosho/internal/api"
	"tosho/internal/assetcache"
	"tosho/internal/catalog"
	"tosho/internal/config"
	"tosho/internal/library"
	"tosho/internal/logging"
	"tosho/internal/resolver"
	"tosho/internal/transform"
)

// Daemon owns the serving side of the system: the catalog, the asset
// cache, the resolver, the scanner, and the HTTP API. A flock on the data
// directory enforces a single instance.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	cache    *assetcache.Store
	resolver *resolver.Resolver
	scanner  *library.Scanner
	library  *api.LibraryService

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	scanMu  sync.Mutex
	api     *apiServer
}

// New wires a daemon from its stores. The transform engine is built from
// the config's transform section.
func New(cfg *config.Config, store *catalog.Store, cache *assetcache.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || cache == nil {
		return nil, errors.New("daemon requires config, catalog store, and cache store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	engine := transform.NewEngine(transform.Options{
		Quality:          cfg.Transform.Quality,
		ThumbnailQuality: cfg.Transform.ThumbnailQuality,
		ThumbnailWidth:   cfg.Transform.ThumbnailWidth,
		ThumbnailHeight:  cfg.Transform.ThumbnailHeight,
		MaxWidth:         cfg.Transform.MaxWidth,
		MaxHeight:        cfg.Transform.MaxHeight,
	})

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		cache:    cache,
		resolver: resolver.New(store, engine, cache, logger),
		scanner:  library.NewScanner(cfg.Paths.LibraryDir, store, logger),
		library:  api.NewLibraryService(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and brings up the HTTP API. It returns
// once the listener is up; Stop shuts everything down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tosho daemon instance is already running")
	}

	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.InfoContext(ctx, "daemon started",
		logging.String("lock", d.lockPath),
		logging.String("library_dir", d.cfg.Paths.LibraryDir))
	return nil
}

// APIAddr reports the HTTP API's bound address once Start has succeeded.
// Useful when the configured bind uses port 0.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Stop shuts down the HTTP API and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the catalog.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports daemon health, library totals, and cache usage.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	status := api.StatusResponse{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LibraryDir:   d.cfg.Paths.LibraryDir,
	}
	series, chapters, pages, err := d.store.Counts(ctx)
	if err != nil {
		d.logger.Warn("failed to count catalog", logging.Error(err))
	} else {
		status.Series, status.Chapters, status.Pages = series, chapters, pages
	}
	status.Cache = d.CacheStats()
	return status
}

// CacheStats reports asset cache usage in wire form.
func (d *Daemon) CacheStats() api.CacheStats {
	stats, err := d.cache.Stats()
	if err != nil {
		d.logger.Warn("failed to stat asset cache", logging.Error(err))
	}
	return api.CacheStats{
		Entries:    stats.Entries,
		TotalBytes: stats.TotalBytes,
		MaxBytes:   stats.MaxBytes,
		FreeRatio:  stats.FreeRatio,
	}
}

// RunScan performs one library scan. Concurrent requests are serialized;
// a scan in flight makes later callers wait rather than race the catalog.
func (d *Daemon) RunScan(ctx context.Context) (library.Summary, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()
	return d.scanner.Scan(ctx)
}
