package main

import (
	"fmt"
	"log/slog"

	"github.com/subwatch/subwatch/internal/cli"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Deliver due notifications once",
		Long: `Run a single delivery pass: every pending notification whose
scheduled time has arrived is claimed and delivered. Failed
deliveries are retried with backoff on later sweeps.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			sched := initScheduler(store)
			defer sched.Stop()

			delivered, err := sched.ProcessDue(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			slog.Info("Sweep complete", "delivered", delivered)
			if delivered == 0 {
				fmt.Println(cli.SubtleStyle.Render("Nothing due."))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Delivered %d notification(s)", delivered)))
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the notification scheduler in the foreground",
		Long: `Run the scheduler until interrupted. Due notifications are
delivered by a periodic sweep, with precise timers for anything
scheduled within the next hour. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			sched := initScheduler(store)
			defer sched.Stop()

			slog.Info("Watching for due notifications...")
			return sched.Run(ctx)
		},
	}
}
