// Package prefs resolves a user's notification delivery policy: per-type
// toggles, quiet hours, and advance-notice windows.
package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

// Service answers delivery-policy questions against stored preferences.
type Service struct {
	storage service.Storage
	clock   func() time.Time
}

// NewService creates a preferences service backed by the given storage.
func NewService(storage service.Storage) *Service {
	return &Service{
		storage: storage,
		clock:   time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Get returns the user's effective preferences: stored values merged over
// the documented defaults, field by field. A user with no stored record
// gets pure defaults.
func (s *Service) Get(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	defaults := model.DefaultPreferences(userID)

	stored, err := s.storage.GetPreferences(ctx, userID)
	if err != nil {
		return defaults, fmt.Errorf("failed to load preferences: %w", err)
	}

	return defaults.Merge(stored), nil
}

// Save persists the user's preference overrides.
func (s *Service) Save(ctx context.Context, prefs *model.NotificationPreferences) error {
	if err := s.storage.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Verdict says whether a notification may go out now, and if not, why.
// Callers that block on it need the distinction: a disabled type is
// permanent, quiet hours are not.
type Verdict int

const (
	// VerdictAllow permits delivery.
	VerdictAllow Verdict = iota
	// VerdictTypeDisabled means the user turned this notification type off.
	VerdictTypeDisabled
	// VerdictQuietHours means delivery is blocked until quiet hours end.
	VerdictQuietHours
)

// DeliveryVerdict classifies whether a notification of the given type may be
// delivered to the user right now. The type toggle is checked before quiet
// hours, so a disabled type wins even inside the window. A lookup or parse
// failure allows delivery: dropping a user-facing notification over a
// preferences glitch is worse than delivering it during quiet hours.
func (s *Service) DeliveryVerdict(ctx context.Context, userID string, t model.NotificationType) Verdict {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		slog.Warn("Preference lookup failed, allowing delivery",
			"user_id", userID,
			"type", t,
			"error", err)
		return VerdictAllow
	}

	if !prefs.TypeEnabled(t) {
		return VerdictTypeDisabled
	}

	if prefs.QuietHoursEnabled {
		inside, err := inQuietHours(s.clock(), prefs.QuietHoursStart, prefs.QuietHoursEnd)
		if err != nil {
			slog.Warn("Invalid quiet hours window, allowing delivery",
				"user_id", userID,
				"start", prefs.QuietHoursStart,
				"end", prefs.QuietHoursEnd,
				"error", err)
			return VerdictAllow
		}
		if inside {
			return VerdictQuietHours
		}
	}

	return VerdictAllow
}

// IsDeliveryAllowed reports whether a notification of the given type may be
// delivered to the user right now.
func (s *Service) IsDeliveryAllowed(ctx context.Context, userID string, t model.NotificationType) bool {
	return s.DeliveryVerdict(ctx, userID, t) == VerdictAllow
}

// QuietHoursEndTime returns the next moment quiet hours end for the user,
// or the zero time when quiet hours are disabled. The scheduler uses this
// to push a suppressed notification instead of dropping it.
func (s *Service) QuietHoursEndTime(ctx context.Context, userID string) time.Time {
	prefs, err := s.Get(ctx, userID)
	if err != nil || !prefs.QuietHoursEnabled {
		return time.Time{}
	}

	endH, endM, err := parseClock(prefs.QuietHoursEnd)
	if err != nil {
		return time.Time{}
	}

	now := s.clock()
	end := time.Date(now.Year(), now.Month(), now.Day(), endH, endM, 0, 0, now.Location())
	if !end.After(now) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// inQuietHours tests whether now falls inside the [start, end) window.
// A window whose start is later than its end wraps past midnight:
// 22:00-08:00 covers 23:30 and 03:00 but not 09:00.
func inQuietHours(now time.Time, start, end string) (bool, error) {
	startH, startM, err := parseClock(start)
	if err != nil {
		return false, err
	}
	endH, endM, err := parseClock(end)
	if err != nil {
		return false, err
	}

	minutes := now.Hour()*60 + now.Minute()
	startMin := startH*60 + startM
	endMin := endH*60 + endM

	if startMin == endMin {
		return false, nil
	}
	if startMin > endMin {
		// Wraps past midnight.
		return minutes >= startMin || minutes < endMin, nil
	}
	return minutes >= startMin && minutes < endMin, nil
}

// parseClock parses an "HH:MM" string.
func parseClock(s string) (hour, minute int, err error) {
	parsed, perr := time.Parse("15:04", s)
	if perr != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, perr)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
