package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tosho/internal/assetcache"
	"tosho/internal/catalog"
	"tosho/internal/config"
	"tosho/internal/daemon"
	"tosho/internal/logging"
	"tosho/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	daemon     *daemon.Daemon
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}

	logger := logging.NewNop()
	cache, err := assetcache.Open(cfg.ImageCache.Dir, cfg.CacheBudgetBytes(), logger)
	if err != nil {
		t.Fatalf("assetcache.Open: %v", err)
	}

	d, err := daemon.New(cfg, store, cache, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	// The daemon binds port 0, so the config file the CLI loads has to
	// carry the real address.
	cfg.Paths.APIBind = d.APIAddr()
	configPath := filepath.Join(cfg.Paths.DataDir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		configPath: configPath,
		baseDir:    filepath.Dir(cfg.Paths.DataDir),
	}

	t.Cleanup(func() {
		cancel()
		d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlibrary_dir = %q\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[image_cache]\ndir = %q\nmax_gib = %d\n",
		cfg.Paths.LibraryDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
		cfg.ImageCache.Dir,
		cfg.ImageCache.MaxGiB,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got %q", want, output)
	}
}

func seedLibrary(t *testing.T, env *cliTestEnv) {
	t.Helper()
	page := testsupport.PNGImage(t, 600, 800)
	testsupport.WriteZip(t, filepath.Join(env.cfg.Paths.LibraryDir, "Test Series", "Chapter 1.cbz"), map[string][]byte{
		"001.png": page,
		"002.png": page,
	})
}

func TestCLIScanAndSeriesCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"series"}, env.configPath)
	if err != nil {
		t.Fatalf("series (empty): %v", err)
	}
	requireContains(t, out, "Library is empty")

	seedLibrary(t, env)

	out, _, err = runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "series: 1")

	out, _, err = runCLI(t, []string{"series"}, env.configPath)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	requireContains(t, out, "Test Series")

	out, _, err = runCLI(t, []string{"series", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("series --json: %v", err)
	}
	requireContains(t, out, `"test-series"`)
}

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running")
	requireContains(t, out, env.cfg.Paths.LibraryDir)
}

func TestCLIProgressCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"progress", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("progress list (empty): %v", err)
	}
	requireContains(t, out, "No reading progress recorded")

	seedLibrary(t, env)
	if _, err := env.daemon.RunScan(ctx); err != nil {
		t.Fatalf("scan: %v", err)
	}
	series, err := env.store.ListSeries(ctx)
	if err != nil || len(series) != 1 {
		t.Fatalf("ListSeries: %v (%d series)", err, len(series))
	}
	chapters, err := env.store.ListChapters(ctx, series[0].ID)
	if err != nil || len(chapters) != 1 {
		t.Fatalf("ListChapters: %v (%d chapters)", err, len(chapters))
	}
	if err := env.store.UpsertProgress(ctx, series[0].ID, chapters[0].ID, 2); err != nil {
		t.Fatalf("UpsertProgress: %v", err)
	}

	out, _, err = runCLI(t, []string{"progress", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("progress list: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("%d", series[0].ID))

	out, _, err = runCLI(t, []string{"progress", "clear", fmt.Sprintf("%d", series[0].ID)}, env.configPath)
	if err != nil {
		t.Fatalf("progress clear: %v", err)
	}
	requireContains(t, out, "Cleared progress")

	if _, err := env.store.GetProgress(ctx, series[0].ID); err == nil {
		t.Fatal("expected progress to be gone after clear")
	}
}

func TestCLICacheStatsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries:")

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Entries:    0")
}

func TestCLIDaemonUnreachable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Stop()

	_, _, err := runCLI(t, []string{"series"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when daemon is down")
	}
	if !strings.Contains(err.Error(), "daemon unreachable") {
		t.Fatalf("unexpected error: %v", err)
	}
}
