package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage the staging area",
	}

	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover staging sessions",
		Long: `Remove staging sessions older than the given age. Sessions normally
disappear when their run finishes; anything this finds was left behind by a
crash or a kill.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			age := maxAgeHours
			if !cmd.Flags().Changed("max-age") {
				age = cfg.Staging.StaleAfterHours
			}

			result := staging.CleanStale(cfg.Paths.StagingDir, time.Duration(age)*time.Hour, logger)

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No stale staging sessions to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %d stale staging sessions\n", len(result.Removed))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age", 0, "Remove sessions older than this many hours (default: configured stale_after_hours)")

	return cmd
}
