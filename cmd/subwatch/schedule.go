package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/scheduler"

	"github.com/spf13/cobra"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <title>",
		Short: "Schedule a notification",
		Long: `Schedule a one-off or recurring notification.

The scheduled time must be in the future. Recurring notifications
repeat at the given frequency until an end date or a maximum
occurrence count is reached.`,
		Args: cobra.ExactArgs(1),
		RunE: runSchedule,
	}

	cmd.Flags().String("at", "", "delivery time (RFC 3339, e.g. 2026-09-01T09:00:00Z)")
	cmd.Flags().Duration("in", 0, "delivery delay from now (e.g. 2h45m), alternative to --at")
	cmd.Flags().String("message", "", "notification body")
	cmd.Flags().String("type", string(model.TypePaymentReminder), "notification type")
	cmd.Flags().String("priority", string(model.PriorityNormal), "priority (low, normal, high)")
	cmd.Flags().String("subscription", "", "related subscription id")
	cmd.Flags().String("recur", "", "recurrence frequency (daily, weekly, monthly, yearly)")
	cmd.Flags().Int("interval", 1, "recurrence interval in frequency units")
	cmd.Flags().Int("max-occurrences", 0, "stop after this many deliveries (0 = unlimited)")
	cmd.Flags().String("end-date", "", "stop recurring after this date (YYYY-MM-DD)")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	title := args[0]
	atStr, _ := cmd.Flags().GetString("at")
	in, _ := cmd.Flags().GetDuration("in")
	message, _ := cmd.Flags().GetString("message")
	typeStr, _ := cmd.Flags().GetString("type")
	priorityStr, _ := cmd.Flags().GetString("priority")
	subscriptionID, _ := cmd.Flags().GetString("subscription")

	var at time.Time
	switch {
	case atStr != "":
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			return fmt.Errorf("invalid --at time %q: %w", atStr, err)
		}
		at = parsed
	case in > 0:
		at = time.Now().Add(in)
	default:
		return fmt.Errorf("either --at or --in is required")
	}

	recurrence, err := recurrenceFromFlags(cmd)
	if err != nil {
		return err
	}

	req := scheduler.Request{
		UserID:       currentUser(),
		Title:        title,
		Message:      message,
		ScheduledFor: at,
		Type:         model.NotificationType(typeStr),
		Priority:     model.NotificationPriority(priorityStr),
		Recurrence:   recurrence,
	}
	if subscriptionID != "" {
		req.RelatedEntityID = subscriptionID
		req.RelatedEntityType = "subscription"
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	sched := initScheduler(store)
	defer sched.Stop()

	n, err := sched.Schedule(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to schedule notification: %w", err)
	}

	slog.Info("Notification scheduled", "id", n.ID, "scheduled_for", n.ScheduledFor)
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Scheduled %q for %s (%s)",
		n.Title, n.ScheduledFor.Local().Format(time.RFC1123), n.ID)))

	return nil
}

func recurrenceFromFlags(cmd *cobra.Command) (*model.RecurrencePattern, error) {
	recur, _ := cmd.Flags().GetString("recur")
	if recur == "" {
		return nil, nil
	}

	interval, _ := cmd.Flags().GetInt("interval")
	maxOccurrences, _ := cmd.Flags().GetInt("max-occurrences")
	endStr, _ := cmd.Flags().GetString("end-date")

	pattern := &model.RecurrencePattern{
		Frequency: model.RecurrenceFrequency(recur),
		Interval:  interval,
	}
	if maxOccurrences > 0 {
		pattern.MaxOccurrences = &maxOccurrences
	}
	if endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --end-date %q: %w", endStr, err)
		}
		pattern.EndDate = &end
	}

	return pattern, nil
}
