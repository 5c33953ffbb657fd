package daemon

import (
	"context"
	"testing"

	"tosho/internal/assetcache"
	"tosho/internal/catalog"
	"tosho/internal/logging"
	"tosho/internal/testsupport"
)

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	cache, err := assetcache.Open(cfg.ImageCache.Dir, cfg.CacheBudgetBytes(), logging.NewNop())
	if err != nil {
		t.Fatalf("assetcache.Open: %v", err)
	}

	first, err := New(cfg, store, cache, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, cache, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon acquired the lock while the first was running")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Stop()
}

func TestStatusReflectsRunning(t *testing.T) {
	d, _ := newTestDaemon(t)
	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon reports running before Start")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("status = %+v", status)
	}
}
