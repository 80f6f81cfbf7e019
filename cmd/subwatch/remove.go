package main

import (
	"fmt"
	"log/slog"

	"github.com/subwatch/subwatch/internal/cli"

	"github.com/spf13/cobra"
)

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a subscription",
		Long:  `Delete a subscription. Any messages linked to it are unlinked, not deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			sub, err := store.GetSubscriptionByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to find subscription: %w", err)
			}

			if err := store.DeleteSubscription(ctx, id); err != nil {
				return fmt.Errorf("failed to delete subscription: %w", err)
			}

			slog.Info("Subscription removed", "id", id, "name", sub.Name)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %s", sub.Name)))
			return nil
		},
	}
}

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <keep-id> <remove-id>",
		Short: "Merge two duplicate subscriptions",
		Long: `Merge a duplicate subscription into the one you want to keep.
Messages linked to the duplicate are relinked to the kept record,
then the duplicate is deleted. The merge is atomic.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keepID, removeID := args[0], args[1]

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.MergeSubscriptions(ctx, keepID, removeID); err != nil {
				return fmt.Errorf("failed to merge subscriptions: %w", err)
			}

			slog.Info("Subscriptions merged", "kept", keepID, "removed", removeID)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Merged %s into %s", removeID, keepID)))
			return nil
		},
	}
}
