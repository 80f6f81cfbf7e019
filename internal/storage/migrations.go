package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS subscriptions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					amount REAL NOT NULL DEFAULT 0,
					billing_cycle TEXT NOT NULL,
					start_date DATETIME,
					next_billing_date DATETIME,
					category_id TEXT,
					notes TEXT,
					auto_detected INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_subscriptions_user ON subscriptions(user_id)`,
				`CREATE INDEX idx_subscriptions_name ON subscriptions(name)`,
				`CREATE INDEX idx_subscriptions_next_billing ON subscriptions(next_billing_date)`,

				`CREATE TABLE IF NOT EXISTS subscription_messages (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					sender TEXT NOT NULL,
					body TEXT NOT NULL,
					detected_at DATETIME NOT NULL,
					confidence REAL DEFAULT 0,
					extracted_data TEXT,
					subscription_id TEXT,
					FOREIGN KEY (subscription_id) REFERENCES subscriptions(id)
				)`,
				`CREATE INDEX idx_messages_user ON subscription_messages(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Scheduled notifications",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS scheduled_notifications (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					title TEXT NOT NULL,
					message TEXT NOT NULL,
					type TEXT NOT NULL,
					priority TEXT NOT NULL DEFAULT 'normal',
					scheduled_for DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					retry_count INTEGER NOT NULL DEFAULT 0,
					last_error TEXT,
					related_entity_id TEXT,
					related_entity_type TEXT,
					recurrence TEXT,
					occurrence INTEGER NOT NULL DEFAULT 1,
					previous_id TEXT,
					sent_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_notifications_due ON scheduled_notifications(status, scheduled_for)`,
				`CREATE INDEX idx_notifications_user ON scheduled_notifications(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Notification preferences",
		Up: func(tx *sql.Tx) error {
			query := `CREATE TABLE IF NOT EXISTS notification_preferences (
				user_id TEXT PRIMARY KEY,
				quiet_hours_enabled INTEGER NOT NULL DEFAULT 0,
				quiet_hours_start TEXT,
				quiet_hours_end TEXT,
				digest_time TEXT,
				type_settings TEXT,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`

			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies any outstanding schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
