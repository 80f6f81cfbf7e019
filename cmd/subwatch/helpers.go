package main

import (
	"context"
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/config"
	"github.com/subwatch/subwatch/internal/dedupe"
	"github.com/subwatch/subwatch/internal/notify"
	"github.com/subwatch/subwatch/internal/prefs"
	"github.com/subwatch/subwatch/internal/scheduler"
	"github.com/subwatch/subwatch/internal/service"
	"github.com/subwatch/subwatch/internal/storage"

	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/subwatch/subwatch.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// A concurrent subwatch process (watch, sweep) can hold the write lock
	// while we open and migrate, so retry briefly before giving up.
	var store *storage.SQLiteStorage
	err := common.WithRetry(ctx, func() error {
		s, openErr := storage.NewSQLiteStorage(dbPath)
		if openErr != nil {
			return openErr
		}
		if migrateErr := s.Migrate(ctx); migrateErr != nil {
			_ = s.Close()
			return migrateErr
		}
		store = s
		return nil
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}

	return store, nil
}

// initScheduler wires a scheduler over the given storage with a console
// deliverer and the user's stored preferences.
func initScheduler(store service.Storage) *scheduler.Scheduler {
	return scheduler.New(store, notify.NewConsoleDeliverer(), prefs.NewService(store))
}

// detectorFromConfig builds a duplicate detector, letting the config file
// override the default thresholds.
func detectorFromConfig() *dedupe.Detector {
	cfg := dedupe.DefaultConfig()
	if viper.IsSet("detection.name_threshold") {
		cfg.NameThreshold = viper.GetFloat64("detection.name_threshold")
	}
	if viper.IsSet("detection.amount_threshold_pct") {
		cfg.AmountThresholdPct = viper.GetFloat64("detection.amount_threshold_pct")
	}
	if viper.IsSet("detection.date_window_days") {
		cfg.DateWindowDays = viper.GetInt("detection.date_window_days")
	}
	if viper.IsSet("detection.normalize_amounts") {
		cfg.NormalizeAmounts = viper.GetBool("detection.normalize_amounts")
	}
	return dedupe.NewDetector(cfg)
}

func currentUser() string {
	return viper.GetString("user")
}

func subscriptionFilter() service.SubscriptionFilter {
	return service.SubscriptionFilter{UserID: currentUser()}
}
