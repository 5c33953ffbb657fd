package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ask the daemon to rescan the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			summary, err := client.Scan(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan %s finished in %s\n", summary.ScanID, time.Duration(summary.DurationMS)*time.Millisecond)
			fmt.Fprintf(out, "  series: %d  chapters: %d  pages: %d  pruned: %d\n",
				summary.Series, summary.Chapters, summary.Pages, summary.Pruned)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
