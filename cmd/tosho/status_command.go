package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tosho/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func renderStatus(cmd *cobra.Command, status api.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	kind := statusOK
	if !status.Running {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("running", kind, yesNo(status.Running), colorize))
	fmt.Fprintln(out, renderStatusLine("pid", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("database", statusInfo, status.DatabasePath, colorize))
	fmt.Fprintln(out, renderStatusLine("library", statusInfo, status.LibraryDir, colorize))

	for _, line := range renderSectionHeader("Library", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("series", statusInfo, fmt.Sprintf("%d", status.Series), colorize))
	fmt.Fprintln(out, renderStatusLine("chapters", statusInfo, fmt.Sprintf("%d", status.Chapters), colorize))
	fmt.Fprintln(out, renderStatusLine("pages", statusInfo, fmt.Sprintf("%d", status.Pages), colorize))

	for _, line := range renderSectionHeader("Cache", colorize) {
		fmt.Fprintln(out, line)
	}
	usage := fmt.Sprintf("%s of %s (%d entries)",
		humanBytes(status.Cache.TotalBytes), humanBytes(status.Cache.MaxBytes), status.Cache.Entries)
	cacheKind := statusOK
	if status.Cache.MaxBytes > 0 && status.Cache.TotalBytes > status.Cache.MaxBytes {
		cacheKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("usage", cacheKind, usage, colorize))
	fmt.Fprintln(out, renderStatusLine("free space", statusInfo, fmt.Sprintf("%.0f%%", status.Cache.FreeRatio*100), colorize))
}
