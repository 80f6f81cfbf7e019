package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

// prefStore stubs just the preference reads the service needs.
type prefStore struct {
	service.Storage
	prefs map[string]*model.NotificationPreferences
	err   error
}

func (s *prefStore) GetPreferences(_ context.Context, userID string) (*model.NotificationPreferences, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.prefs[userID], nil
}

func (s *prefStore) SavePreferences(_ context.Context, p *model.NotificationPreferences) error {
	if s.err != nil {
		return s.err
	}
	if s.prefs == nil {
		s.prefs = make(map[string]*model.NotificationPreferences)
	}
	s.prefs[p.UserID] = p
	return nil
}

func newTestService(store *prefStore, now time.Time) *Service {
	svc := NewService(store)
	svc.clock = func() time.Time { return now }
	return svc
}

func clockAt(hour, minute int) time.Time {
	return time.Date(2025, 6, 15, hour, minute, 0, 0, time.UTC)
}

func TestIsDeliveryAllowed_QuietHoursWraparound(t *testing.T) {
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			QuietHoursStart:   "22:00",
			QuietHoursEnd:     "08:00",
		},
	}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "inside window before midnight", now: clockAt(23, 30), want: false},
		{name: "inside window after midnight", now: clockAt(3, 0), want: false},
		{name: "outside window morning", now: clockAt(9, 0), want: true},
		{name: "outside window afternoon", now: clockAt(13, 0), want: true},
		{name: "window start is inclusive", now: clockAt(22, 0), want: false},
		{name: "window end is exclusive", now: clockAt(8, 0), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(store, tt.now)
			assert.Equal(t, tt.want, svc.IsDeliveryAllowed(context.Background(), "user-1", model.TypePaymentReminder))
		})
	}
}

func TestIsDeliveryAllowed_NonWraparoundWindow(t *testing.T) {
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			QuietHoursStart:   "13:00",
			QuietHoursEnd:     "14:00",
		},
	}}

	assert.False(t, newTestService(store, clockAt(13, 30)).IsDeliveryAllowed(context.Background(), "user-1", model.TypeDigest))
	assert.True(t, newTestService(store, clockAt(14, 0)).IsDeliveryAllowed(context.Background(), "user-1", model.TypeDigest))
	assert.True(t, newTestService(store, clockAt(12, 59)).IsDeliveryAllowed(context.Background(), "user-1", model.TypeDigest))
}

func TestIsDeliveryAllowed_DisabledType(t *testing.T) {
	disabled := false
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID: "user-1",
			Types: map[model.NotificationType]model.TypePreference{
				model.TypeDigest: {Enabled: &disabled},
			},
		},
	}}

	svc := newTestService(store, clockAt(12, 0))
	assert.False(t, svc.IsDeliveryAllowed(context.Background(), "user-1", model.TypeDigest))
	// Other types keep their default-enabled state.
	assert.True(t, svc.IsDeliveryAllowed(context.Background(), "user-1", model.TypePaymentReminder))
}

func TestDeliveryVerdict_DisabledTypeWinsOverQuietHours(t *testing.T) {
	disabled := false
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			QuietHoursStart:   "22:00",
			QuietHoursEnd:     "08:00",
			Types: map[model.NotificationType]model.TypePreference{
				model.TypeDigest: {Enabled: &disabled},
			},
		},
	}}

	// Inside the quiet window the disabled type still reads as disabled,
	// so callers cancel instead of deferring forever.
	svc := newTestService(store, clockAt(23, 30))
	assert.Equal(t, VerdictTypeDisabled, svc.DeliveryVerdict(context.Background(), "user-1", model.TypeDigest))
	assert.Equal(t, VerdictQuietHours, svc.DeliveryVerdict(context.Background(), "user-1", model.TypePaymentReminder))

	// Outside the window the toggle alone decides.
	svc = newTestService(store, clockAt(12, 0))
	assert.Equal(t, VerdictTypeDisabled, svc.DeliveryVerdict(context.Background(), "user-1", model.TypeDigest))
	assert.Equal(t, VerdictAllow, svc.DeliveryVerdict(context.Background(), "user-1", model.TypePaymentReminder))
}

func TestIsDeliveryAllowed_FailOpen(t *testing.T) {
	store := &prefStore{err: errors.New("database locked")}

	svc := newTestService(store, clockAt(23, 30))
	assert.True(t, svc.IsDeliveryAllowed(context.Background(), "user-1", model.TypePaymentReminder))
}

func TestIsDeliveryAllowed_InvalidQuietHoursFailOpen(t *testing.T) {
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			QuietHoursStart:   "not-a-time",
			QuietHoursEnd:     "08:00",
		},
	}}

	svc := newTestService(store, clockAt(23, 30))
	assert.True(t, svc.IsDeliveryAllowed(context.Background(), "user-1", model.TypePaymentReminder))
}

func TestGet_MergesOverDefaults(t *testing.T) {
	push := false
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			// QuietHoursStart deliberately unset; default applies.
			QuietHoursEnd: "07:30",
			Types: map[model.NotificationType]model.TypePreference{
				model.TypePriceChange: {Push: &push},
			},
		},
	}}

	svc := newTestService(store, clockAt(12, 0))
	got, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, got.QuietHoursEnabled)
	assert.Equal(t, model.DefaultQuietHoursStart, got.QuietHoursStart)
	assert.Equal(t, "07:30", got.QuietHoursEnd)
	assert.Equal(t, model.DefaultDigestTime, got.DigestTime)

	// Partial type override keeps the default Enabled/AdvanceDays.
	pc := got.Types[model.TypePriceChange]
	require.NotNil(t, pc.Enabled)
	assert.True(t, *pc.Enabled)
	require.NotNil(t, pc.Push)
	assert.False(t, *pc.Push)
	require.NotNil(t, pc.AdvanceDays)
	assert.Equal(t, model.DefaultAdvanceDays, *pc.AdvanceDays)
}

func TestGet_NoStoredRecordReturnsDefaults(t *testing.T) {
	svc := newTestService(&prefStore{}, clockAt(12, 0))

	got, err := svc.Get(context.Background(), "user-9")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultPreferences("user-9"), got)
}

func TestQuietHoursEndTime(t *testing.T) {
	store := &prefStore{prefs: map[string]*model.NotificationPreferences{
		"user-1": {
			UserID:            "user-1",
			QuietHoursEnabled: true,
			QuietHoursStart:   "22:00",
			QuietHoursEnd:     "08:00",
		},
	}}

	// At 23:30 the window ends at 08:00 tomorrow.
	svc := newTestService(store, clockAt(23, 30))
	end := svc.QuietHoursEndTime(context.Background(), "user-1")
	assert.Equal(t, time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), end)

	// At 06:00 the window ends at 08:00 today.
	svc = newTestService(store, clockAt(6, 0))
	end = svc.QuietHoursEndTime(context.Background(), "user-1")
	assert.Equal(t, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC), end)

	// Disabled quiet hours yield the zero time.
	svc = newTestService(&prefStore{}, clockAt(6, 0))
	assert.True(t, svc.QuietHoursEndTime(context.Background(), "user-9").IsZero())
}
