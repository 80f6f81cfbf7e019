package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/model"
)

// GetPreferences retrieves a user's stored preference overrides. A user
// with no stored record yields (nil, nil); callers merge over defaults.
func (s *SQLiteStorage) GetPreferences(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var p model.NotificationPreferences
	var start, end, digest, typeSettings sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, quiet_hours_enabled, quiet_hours_start,
			quiet_hours_end, digest_time, type_settings
		FROM notification_preferences
		WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.QuietHoursEnabled, &start, &end, &digest, &typeSettings)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	if start.Valid {
		p.QuietHoursStart = start.String
	}
	if end.Valid {
		p.QuietHoursEnd = end.String
	}
	if digest.Valid {
		p.DigestTime = digest.String
	}
	if typeSettings.Valid && typeSettings.String != "" {
		if jsonErr := json.Unmarshal([]byte(typeSettings.String), &p.Types); jsonErr != nil {
			return nil, fmt.Errorf("failed to decode type settings: %w", jsonErr)
		}
	}

	return &p, nil
}

// SavePreferences upserts a user's preference overrides.
func (s *SQLiteStorage) SavePreferences(ctx context.Context, prefs *model.NotificationPreferences) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if prefs == nil {
		return fmt.Errorf("%w: preferences", ErrNilParameter)
	}
	if err := validateString(prefs.UserID, "userID"); err != nil {
		return err
	}

	var typeSettings any
	if len(prefs.Types) > 0 {
		data, err := json.Marshal(prefs.Types)
		if err != nil {
			return fmt.Errorf("failed to encode type settings: %w", err)
		}
		typeSettings = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, quiet_hours_enabled,
			quiet_hours_start, quiet_hours_end, digest_time, type_settings,
			updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			quiet_hours_enabled = excluded.quiet_hours_enabled,
			quiet_hours_start = excluded.quiet_hours_start,
			quiet_hours_end = excluded.quiet_hours_end,
			digest_time = excluded.digest_time,
			type_settings = excluded.type_settings,
			updated_at = excluded.updated_at
	`,
		prefs.UserID, prefs.QuietHoursEnabled,
		nullString(prefs.QuietHoursStart), nullString(prefs.QuietHoursEnd),
		nullString(prefs.DigestTime), typeSettings, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// nullString maps the empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
