package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reorganizer runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store := ctx.openCatalog(cmd.Context(), logger)
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Run catalog not configured (set paths.catalog_path)")
				return nil
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("query run history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			if isTTY() {
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", run.ID),
						formatRunTime(run.StartedAt),
						run.Mode,
						run.InputDir,
						fmt.Sprintf("%d", run.Archives),
						fmt.Sprintf("%d", run.Pages),
						fmt.Sprintf("%d", run.Skipped),
						run.Status,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Mode", "Input", "Archives", "Pages", "Skipped", "Status"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			}

			for _, run := range runs {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d archives\t%d pages\t%d skipped\t%s\n",
					run.ID, formatRunTime(run.StartedAt), run.Mode, run.InputDir,
					run.Archives, run.Pages, run.Skipped, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
