package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bindery/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reorganize chapter archives into volume archives",
		Long: `Scan the input directory for .cbz files, group them by title and volume,
and repackage each volume as a single archive with sequentially numbered
pages. With --all, every volume is merged into one combined archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.InputDir == "" {
				opts.InputDir = "."
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			store := ctx.openCatalog(cmd.Context(), logger)
			defer store.Close()

			p := pipeline.New(cfg, store, logger)
			result, err := p.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Discovered == 0 {
				fmt.Fprintf(out, "No CBZ files found in %s\n", opts.InputDir)
				return nil
			}
			for _, archive := range result.Outputs {
				fmt.Fprintf(out, "Wrote %s (%d pages from %d sources)\n",
					archive.Path, archive.Pages, archive.Sources)
			}
			fmt.Fprintf(out, "Done: %d archives from %d files", len(result.Outputs), result.Discovered)
			if result.Skipped > 0 {
				fmt.Fprintf(out, ", %d unreadable sources skipped", result.Skipped)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.InputDir, "input", "i", "", "Directory containing the source .cbz files (default: current directory)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Directory for the produced archives (default: library dir, then input dir)")
	cmd.Flags().StringVarP(&opts.ManualTitle, "title", "t", "", "Override the series title for every file")
	cmd.Flags().BoolVar(&opts.Combined, "all", false, "Combine every volume into one archive")

	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how archives would be grouped without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.InputDir == "" {
				opts.InputDir = "."
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			p := pipeline.New(cfg, nil, logger)
			groups, err := p.Plan(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintf(out, "No CBZ files found in %s\n", opts.InputDir)
				return nil
			}

			if isTTY() {
				rows := make([][]string, 0, len(groups))
				for _, group := range groups {
					rows = append(rows, []string{
						group.Title,
						fmt.Sprintf("%d", group.Volume),
						fmt.Sprintf("%d", len(group.Files)),
						pipeline.VolumeArchiveName(group.Title, group.Volume),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Title", "Volume", "Files", "Output"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			}

			for _, group := range groups {
				fmt.Fprintf(out, "%s\n", pipeline.VolumeArchiveName(group.Title, group.Volume))
				for _, file := range group.Files {
					fmt.Fprintf(out, "  %s (chapter %d)\n", filepath.Base(file.Path), file.Info.Chapter)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.InputDir, "input", "i", "", "Directory containing the source .cbz files (default: current directory)")
	cmd.Flags().StringVarP(&opts.ManualTitle, "title", "t", "", "Override the series title for every file")

	return cmd
}
