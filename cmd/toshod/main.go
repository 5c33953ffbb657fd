// Command toshod runs the tosho daemon without the CLI wrapper. It loads
// the default configuration, opens the catalog and asset cache, and serves
// the HTTP API until interrupted.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tosho/internal/assetcache"
	"tosho/internal/catalog"
	"tosho/internal/config"
	"tosho/internal/daemon"
	"tosho/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	cache, err := assetcache.Open(cfg.ImageCache.Dir, cfg.CacheBudgetBytes(), logger)
	if err != nil {
		log.Fatalf("open asset cache: %v", err)
	}

	d, err := daemon.New(cfg, store, cache, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	if _, err := d.RunScan(ctx); err != nil {
		logger.Warn("initial library scan failed", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("toshod shutting down")
}
