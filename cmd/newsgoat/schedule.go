package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsGoat/internal/schedule"
)

// scheduleCmd creates the "schedule" subcommand: periodic runs until
// interrupted.
func scheduleCmd() *cobra.Command {
	flags := &runFlags{}
	var (
		spec     string
		timezone string
		now      bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scrapes periodically on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if spec == "" {
				spec = a.cfg.Schedule.Cron
			}
			if timezone == "" {
				timezone = a.cfg.Schedule.Timezone
			}

			out := cmd.OutOrStdout()
			job := func(ctx context.Context) error { return a.scrape(ctx, out) }

			s, err := schedule.New(spec, timezone, job, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if now {
				if err := job(ctx); err != nil {
					a.logger.Error("initial run failed", "error", err)
				}
			}

			s.Start()
			fmt.Fprintf(out, "Scheduled %q (%s), next run %s\n", spec, s.Location(), s.Next().Format(time.RFC1123))

			<-ctx.Done()
			a.logger.Info("shutting down scheduler")
			s.Stop()
			return nil
		},
	}

	addRunFlags(cmd, flags)
	cmd.Flags().StringVar(&spec, "cron", "", `cron expression (default from config, e.g. "0 */2 * * *")`)
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA timezone for the schedule (default from config)")
	cmd.Flags().BoolVar(&now, "now", false, "run once immediately before waiting for the schedule")
	return cmd
}
