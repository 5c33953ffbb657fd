package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tosho/internal/assetcache"
	"tosho/internal/catalog"
	"tosho/internal/daemon"
	"tosho/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var scanOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tosho daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, scanOnStart)
		},
	}
	cmd.Flags().BoolVar(&scanOnStart, "scan", true, "Scan the library before serving")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, scanOnStart bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	cache, err := assetcache.Open(cfg.ImageCache.Dir, cfg.CacheBudgetBytes(), logger)
	if err != nil {
		return fmt.Errorf("open asset cache: %w", err)
	}

	d, err := daemon.New(cfg, store, cache, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	if scanOnStart {
		if _, err := d.RunScan(signalCtx); err != nil {
			logger.Warn("initial library scan failed", logging.Error(err))
		}
	}

	<-signalCtx.Done()
	logger.Info("tosho shutting down")
	return nil
}
