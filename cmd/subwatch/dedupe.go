package main

import (
	"fmt"
	"os"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/dedupe"
	"github.com/subwatch/subwatch/internal/model"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func dedupeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Scan for duplicate subscriptions",
		Long: `Scan your subscriptions pairwise for likely duplicates.

Each group of duplicates is printed with the record the scanner
would keep, so you can resolve it with 'subwatch merge'. By default
only the best match per group is shown; --all prints every
qualifying match with its confidence.`,
		RunE: runDedupe,
	}

	cmd.Flags().Bool("all", false, "show every qualifying match, not just the best")

	return cmd
}

func runDedupe(cmd *cobra.Command, _ []string) error {
	showAll, _ := cmd.Flags().GetBool("all")

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

	if len(subs) < 2 {
		fmt.Println(cli.SubtleStyle.Render("Nothing to scan."))
		return nil
	}

	detector := detectorFromConfig()
	bar := progressbar.NewOptions(len(subs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scanning subscriptions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	grouped := make(map[string]bool)
	groups := 0

	for i := range subs {
		_ = bar.Add(1)
		candidate := subs[i]
		if grouped[candidate.ID] {
			continue
		}

		result := detector.DetectDuplicates(candidate, subs)
		if !result.IsDuplicate {
			continue
		}

		group := []model.Subscription{candidate}
		grouped[candidate.ID] = true
		for _, m := range result.Matches {
			if !grouped[m.Subscription.ID] {
				group = append(group, m.Subscription)
				grouped[m.Subscription.ID] = true
			}
		}
		if len(group) < 2 {
			continue
		}
		groups++

		keep, err := dedupe.PreferredSubscription(group)
		if err != nil {
			return fmt.Errorf("failed to pick preferred record: %w", err)
		}

		fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Duplicate group %d", groups)))
		fmt.Printf("  keep:  %s  %-24s %.2f/%s\n", keep.ID, keep.Name, keep.Amount, keep.BillingCycle)
		for _, s := range group {
			if s.ID == keep.ID {
				continue
			}
			fmt.Printf("  merge: %s  %-24s %.2f/%s\n", s.ID, s.Name, s.Amount, s.BillingCycle)
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("         subwatch merge %s %s", keep.ID, s.ID)))
		}
		if showAll {
			for _, m := range result.Matches {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
					"         %s vs %s: %.0f%% (%s)", candidate.Name, m.Subscription.Name, m.Confidence, m.Reason)))
			}
		}
	}

	if groups == 0 {
		fmt.Println(cli.FormatSuccess("No duplicates found"))
	} else {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d duplicate group(s) found", groups)))
	}

	return nil
}
