package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subscription",
		Long: `Add a subscription to the tracker.

Before inserting, the new record is checked against your existing
subscriptions; if it looks like a duplicate the add is refused
unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().Float64("amount", 0, "price per billing cycle")
	cmd.Flags().String("cycle", "monthly", "billing cycle (weekly, monthly, quarterly, biannually, yearly)")
	cmd.Flags().String("next-billing", "", "next billing date (YYYY-MM-DD, default: one cycle from today)")
	cmd.Flags().String("category", "", "category id")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().Bool("force", false, "add even if it looks like a duplicate")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	amount, _ := cmd.Flags().GetFloat64("amount")
	cycleStr, _ := cmd.Flags().GetString("cycle")
	nextStr, _ := cmd.Flags().GetString("next-billing")
	category, _ := cmd.Flags().GetString("category")
	notes, _ := cmd.Flags().GetString("notes")
	force, _ := cmd.Flags().GetBool("force")

	cycle := model.BillingCycle(cycleStr)
	if !cycle.IsValid() {
		return fmt.Errorf("invalid billing cycle: %s", cycleStr)
	}

	now := time.Now()
	next := nextBillingFrom(now, cycle)
	if nextStr != "" {
		parsed, err := time.Parse("2006-01-02", nextStr)
		if err != nil {
			return fmt.Errorf("invalid next billing date %q: %w", nextStr, err)
		}
		next = parsed
	}

	sub := model.Subscription{
		ID:              uuid.NewString(),
		UserID:          currentUser(),
		Name:            name,
		Amount:          amount,
		BillingCycle:    cycle,
		StartDate:       now,
		NextBillingDate: next,
		Notes:           notes,
		CreatedAt:       now,
	}
	if category != "" {
		sub.CategoryID = &category
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	existing, err := store.GetSubscriptions(ctx, subscriptionFilter())
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	result := detectorFromConfig().DetectDuplicates(sub, existing)
	if result.IsDuplicate && !force {
		best := result.Matches[0]
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"Looks like a duplicate of %q (%.0f%% confidence, %s)",
			best.Subscription.Name, best.Confidence, best.Reason)))
		fmt.Println(cli.SubtleStyle.Render("Use --force to add it anyway."))
		return fmt.Errorf("refusing to add likely duplicate of %s", best.Subscription.ID)
	}

	if err := store.SaveSubscription(ctx, &sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	slog.Info("Subscription added", "id", sub.ID, "name", sub.Name)
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s (%s)", sub.Name, sub.ID)))
	if result.IsDuplicate {
		fmt.Println(cli.FormatWarning("Added despite duplicate warning (--force)"))
	}

	return nil
}

// nextBillingFrom projects the first billing date one cycle out from start.
func nextBillingFrom(start time.Time, cycle model.BillingCycle) time.Time {
	switch cycle {
	case model.CycleWeekly:
		return start.AddDate(0, 0, 7)
	case model.CycleMonthly:
		return start.AddDate(0, 1, 0)
	case model.CycleQuarterly:
		return start.AddDate(0, 3, 0)
	case model.CycleBiannually:
		return start.AddDate(0, 6, 0)
	case model.CycleYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start
	}
}
