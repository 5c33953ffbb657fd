package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect reading progress",
	}
	progressCmd.AddCommand(newProgressListCommand(ctx))
	progressCmd.AddCommand(newProgressClearCommand(ctx))
	return progressCmd
}

func newProgressListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reading positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			progress, err := client.ListProgress(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, progress)
			}
			if len(progress) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reading progress recorded.")
				return nil
			}
			rows := make([][]string, 0, len(progress))
			for _, item := range progress {
				rows = append(rows, []string{
					strconv.FormatInt(item.SeriesID, 10),
					strconv.FormatInt(item.ChapterID, 10),
					strconv.Itoa(item.Page),
					item.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Series", "Chapter", "Page", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newProgressClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <series-id>",
		Short: "Clear the saved position for a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seriesID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid series id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.ClearProgress(cmd.Context(), seriesID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared progress for series %d\n", seriesID)
			return nil
		},
	}
}
