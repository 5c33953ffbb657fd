package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tosho/internal/api"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transformed-image cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheAction(cmd, ctx, jsonOutput, func(c *api.Client, cctx context.Context) (api.CacheStats, error) {
				return c.CacheStats(cctx)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict cache entries down to the configured limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheAction(cmd, ctx, jsonOutput, func(c *api.Client, cctx context.Context) (api.CacheStats, error) {
				return c.CachePrune(cctx)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cacheAction(cmd, ctx, jsonOutput, func(c *api.Client, cctx context.Context) (api.CacheStats, error) {
				return c.CacheClear(cctx)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func cacheAction(cmd *cobra.Command, ctx *commandContext, jsonOutput bool, action func(*api.Client, context.Context) (api.CacheStats, error)) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	stats, err := action(client, cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, stats)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entries:    %d\n", stats.Entries)
	fmt.Fprintf(out, "Used:       %s of %s\n", humanBytes(stats.TotalBytes), humanBytes(stats.MaxBytes))
	fmt.Fprintf(out, "Free space: %.0f%%\n", stats.FreeRatio*100)
	return nil
}
