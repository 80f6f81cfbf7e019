package main

import (
	"fmt"

	"github.com/subwatch/subwatch/internal/cli"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Long:  `List tracked subscriptions with their monthly-equivalent cost.`,
		RunE:  runList,
	}

	cmd.Flags().String("category", "", "only show subscriptions in this category")
	cmd.Flags().Int("limit", 0, "maximum number of rows")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	filter := subscriptionFilter()
	filter.Limit = limit
	if category != "" {
		filter.CategoryID = &category
	}

	subs, err := store.GetSubscriptions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	if len(subs) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No subscriptions yet. Add one with 'subwatch add'."))
		return nil
	}

	fmt.Println(cli.TitleStyle.Render("Subscriptions"))
	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%-36s  %-24s  %-11s  %10s  %10s", "ID", "Name", "Cycle", "Amount", "Monthly")))

	var totalMonthly float64
	for i := range subs {
		s := &subs[i]
		monthly := s.MonthlyAmount()
		totalMonthly += monthly
		fmt.Printf("%-36s  %-24s  %-11s  %10.2f  %10.2f\n",
			s.ID, s.Name, s.BillingCycle, s.Amount, monthly)
	}

	fmt.Println(cli.AmountStyle.Render(fmt.Sprintf("Total: %.2f/month across %d subscriptions", totalMonthly, len(subs))))

	return nil
}
