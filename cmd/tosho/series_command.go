package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "series",
		Short: "List library series",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			series, err := client.ListSeries(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, series)
			}
			if len(series) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Library is empty; run `tosho scan` after adding series.")
				return nil
			}
			rows := make([][]string, 0, len(series))
			for _, item := range series {
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.Title,
					item.Slug,
					strconv.Itoa(item.ChapterCount),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Slug", "Chapters"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
