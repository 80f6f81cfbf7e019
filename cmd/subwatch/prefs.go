package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/prefs"
	"github.com/subwatch/subwatch/internal/service"

	"github.com/spf13/cobra"
)

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage notification preferences",
		Long: `View and change when and how notifications reach you.

Stored preferences are sparse: anything you never set falls back
to the defaults (quiet hours 22:00-08:00, all types enabled).`,
	}

	cmd.AddCommand(prefsShowCmd())
	cmd.AddCommand(prefsSetCmd())
	cmd.AddCommand(prefsTypeCmd())

	return cmd
}

func prefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			effective, err := prefs.NewService(store).Get(ctx, currentUser())
			if err != nil {
				return fmt.Errorf("failed to load preferences: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Preferences for %s", effective.UserID)))
			quiet := "off"
			if effective.QuietHoursEnabled {
				quiet = fmt.Sprintf("%s - %s", effective.QuietHoursStart, effective.QuietHoursEnd)
			}
			fmt.Printf("  quiet hours: %s\n", quiet)
			fmt.Printf("  digest time: %s\n", effective.DigestTime)

			fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("  %-22s %-8s %-6s %-6s %s", "Type", "Enabled", "Push", "Email", "Advance")))
			for _, t := range []model.NotificationType{
				model.TypePaymentReminder,
				model.TypeCancellationDeadline,
				model.TypePriceChange,
				model.TypeDuplicateAlert,
				model.TypeDigest,
			} {
				tp := effective.Types[t]
				fmt.Printf("  %-22s %-8v %-6v %-6v %dd\n",
					t, boolOr(tp.Enabled, true), boolOr(tp.Push, true), boolOr(tp.Email, false),
					intOr(tp.AdvanceDays, model.DefaultAdvanceDays))
			}
			return nil
		},
	}
}

func prefsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set quiet hours and digest time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			stored, err := loadStored(ctx, store)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("quiet-hours") {
				enabled, _ := cmd.Flags().GetBool("quiet-hours")
				stored.QuietHoursEnabled = enabled
			}
			if start, _ := cmd.Flags().GetString("quiet-start"); start != "" {
				stored.QuietHoursStart = start
			}
			if end, _ := cmd.Flags().GetString("quiet-end"); end != "" {
				stored.QuietHoursEnd = end
			}
			if digest, _ := cmd.Flags().GetString("digest-time"); digest != "" {
				stored.DigestTime = digest
			}

			if err := prefs.NewService(store).Save(ctx, stored); err != nil {
				return fmt.Errorf("failed to save preferences: %w", err)
			}

			slog.Info("Preferences updated", "user", stored.UserID)
			fmt.Println(cli.FormatSuccess("Preferences saved"))
			return nil
		},
	}

	cmd.Flags().Bool("quiet-hours", false, "enable or disable quiet hours")
	cmd.Flags().String("quiet-start", "", "quiet hours start (HH:MM)")
	cmd.Flags().String("quiet-end", "", "quiet hours end (HH:MM)")
	cmd.Flags().String("digest-time", "", "daily digest time (HH:MM)")

	return cmd
}

func prefsTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type <notification-type>",
		Short: "Set per-type delivery options",
		Long: `Change delivery options for one notification type, e.g.:

  subwatch prefs type payment_reminder --enabled=false
  subwatch prefs type cancellation_deadline --advance-days 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notifType := model.NotificationType(args[0])

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			stored, err := loadStored(ctx, store)
			if err != nil {
				return err
			}
			if stored.Types == nil {
				stored.Types = make(map[model.NotificationType]model.TypePreference)
			}

			tp := stored.Types[notifType]
			if cmd.Flags().Changed("enabled") {
				v, _ := cmd.Flags().GetBool("enabled")
				tp.Enabled = &v
			}
			if cmd.Flags().Changed("push") {
				v, _ := cmd.Flags().GetBool("push")
				tp.Push = &v
			}
			if cmd.Flags().Changed("email") {
				v, _ := cmd.Flags().GetBool("email")
				tp.Email = &v
			}
			if cmd.Flags().Changed("advance-days") {
				v, _ := cmd.Flags().GetInt("advance-days")
				tp.AdvanceDays = &v
			}
			stored.Types[notifType] = tp

			if err := prefs.NewService(store).Save(ctx, stored); err != nil {
				return fmt.Errorf("failed to save preferences: %w", err)
			}

			slog.Info("Type preference updated", "user", stored.UserID, "type", notifType)
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved %s preferences", notifType)))
			return nil
		},
	}

	cmd.Flags().Bool("enabled", true, "deliver this notification type")
	cmd.Flags().Bool("push", true, "deliver via push")
	cmd.Flags().Bool("email", false, "deliver via email")
	cmd.Flags().Int("advance-days", model.DefaultAdvanceDays, "reminder lead time in days")

	return cmd
}

// loadStored returns the user's stored (sparse) preferences, or a fresh
// record if none exist yet. Edits apply to the stored record so unset
// fields keep falling back to defaults.
func loadStored(ctx context.Context, store service.Storage) (*model.NotificationPreferences, error) {
	stored, err := store.GetPreferences(ctx, currentUser())
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if stored == nil {
		stored = &model.NotificationPreferences{UserID: currentUser()}
	}
	return stored, nil
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
