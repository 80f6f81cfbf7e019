package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"

	"github.com/spf13/cobra"
)

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Manage scheduled notifications",
		Long:  `View, cancel, and reschedule notifications.`,
	}

	cmd.AddCommand(notificationsListCmd())
	cmd.AddCommand(notificationsCancelCmd())
	cmd.AddCommand(notificationsRescheduleCmd())

	return cmd
}

func notificationsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			filter := service.NotificationFilter{
				UserID: currentUser(),
				Status: model.NotificationStatus(status),
				Limit:  limit,
			}
			notifications, err := store.GetNotifications(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to load notifications: %w", err)
			}

			if len(notifications) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No notifications."))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Notifications"))
			fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%-36s  %-10s  %-21s  %-20s  %s", "ID", "Status", "Type", "Scheduled", "Title")))
			for i := range notifications {
				n := &notifications[i]
				line := fmt.Sprintf("%-36s  %-10s  %-21s  %-20s  %s",
					n.ID, n.Status, n.Type, n.ScheduledFor.Local().Format("2006-01-02 15:04"), n.Title)
				if n.Status == model.StatusFailed && n.LastError != "" {
					line += cli.SubtleStyle.Render(fmt.Sprintf("  (%s)", n.LastError))
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().String("status", "", "filter by status (pending, processing, sent, failed, cancelled)")
	cmd.Flags().Int("limit", 50, "maximum number of rows")

	return cmd
}

func notificationsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending notification",
		Long:  `Cancel a notification. Only pending notifications can be cancelled.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			sched := initScheduler(store)
			defer sched.Stop()

			if err := sched.Cancel(ctx, id); err != nil {
				return fmt.Errorf("failed to cancel notification: %w", err)
			}

			slog.Info("Notification cancelled", "id", id)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cancelled %s", id)))
			return nil
		},
	}
}

func notificationsRescheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <id> <time>",
		Short: "Move a pending notification to a new time",
		Long: `Reschedule a pending notification to a new future time
(RFC 3339, e.g. 2026-09-01T09:00:00Z).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			newTime, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("invalid time %q: %w", args[1], err)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			sched := initScheduler(store)
			defer sched.Stop()

			if err := sched.Reschedule(ctx, id, newTime); err != nil {
				return fmt.Errorf("failed to reschedule notification: %w", err)
			}

			slog.Info("Notification rescheduled", "id", id, "scheduled_for", newTime)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rescheduled %s for %s", id, newTime.Local().Format(time.RFC1123))))
			return nil
		},
	}
}
