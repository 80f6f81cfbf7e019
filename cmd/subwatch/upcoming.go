package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/scheduler"
	"github.com/subwatch/subwatch/internal/service"

	"github.com/spf13/cobra"
)

func upcomingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Schedule payment reminders for upcoming renewals",
		Long: `Find subscriptions billing within the next N days and schedule
a payment reminder for each, a few days ahead of the charge.

Reminders that would land in the past fire immediately on the
next sweep instead of being dropped.`,
		RunE: runUpcoming,
	}

	cmd.Flags().Int("days", 30, "look this many days ahead for renewals")
	cmd.Flags().Int("remind-before", 3, "schedule the reminder this many days before the charge")
	cmd.Flags().Bool("dry-run", false, "show what would be scheduled without writing anything")

	return cmd
}

func runUpcoming(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	remindBefore, _ := cmd.Flags().GetInt("remind-before")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	subs, err := store.GetSubscriptions(ctx, subscriptionFilter())
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	pending, err := store.GetNotifications(ctx, service.NotificationFilter{
		UserID: currentUser(),
		Status: model.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("failed to load pending notifications: %w", err)
	}
	reminded := pendingReminderIDs(pending)

	sched := initScheduler(store)
	defer sched.Stop()

	now := time.Now()
	horizon := now.AddDate(0, 0, days)
	scheduled := 0

	for i := range subs {
		sub := &subs[i]
		if sub.NextBillingDate.Before(now) || sub.NextBillingDate.After(horizon) {
			continue
		}
		if reminded[sub.ID] {
			// A reminder from a previous run is still queued.
			continue
		}

		req := scheduler.NewPaymentReminder(sub, remindBefore)
		if !req.ScheduledFor.After(now) {
			// Too close to the charge for the full lead time; remind now.
			req.ScheduledFor = now.Add(time.Minute)
		}
		if dryRun {
			fmt.Printf("would schedule: %-24s at %s\n", sub.Name, req.ScheduledFor.Local().Format(time.RFC1123))
			continue
		}

		n, err := sched.Schedule(ctx, req)
		if err != nil {
			slog.Warn("Skipping reminder", "subscription", sub.ID, "error", err)
			continue
		}
		scheduled++
		fmt.Printf("scheduled: %-24s at %s (%s)\n", sub.Name, n.ScheduledFor.Local().Format(time.RFC1123), n.ID)
	}

	if dryRun {
		return nil
	}
	if scheduled == 0 {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("No renewals within %d days.", days)))
	} else {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Scheduled %d payment reminder(s)", scheduled)))
	}

	return nil
}

// pendingReminderIDs collects the subscription ids that already have a
// pending payment reminder queued, so repeated runs do not stack duplicate
// reminders for the same renewal.
func pendingReminderIDs(notifications []model.ScheduledNotification) map[string]bool {
	ids := make(map[string]bool)
	for i := range notifications {
		n := &notifications[i]
		if n.Type != model.TypePaymentReminder || n.Status != model.StatusPending {
			continue
		}
		if n.RelatedEntityType == "subscription" && n.RelatedEntityID != "" {
			ids[n.RelatedEntityID] = true
		}
	}
	return ids
}
