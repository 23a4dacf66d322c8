package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.sourcesFile, "sources", "", "YAML source catalog (default: built-in catalog)")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "comma-separated source ids to scrape")
	cmd.Flags().StringVarP(&f.outputPath, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&f.outputType, "format", "f", "", "output sinks: json, jsonl, csv, sqlite, mongo (comma-separated)")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "write a Markdown run report to this file")
}

// runCmd creates the "run" subcommand: one batch scrape.
func runCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every configured source once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.scrape(ctx, cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}
