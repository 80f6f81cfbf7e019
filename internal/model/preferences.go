package model

// TypePreference holds delivery settings for one notification type.
type TypePreference struct {
	Enabled     *bool
	Push        *bool
	Email       *bool
	AdvanceDays *int
}

// NotificationPreferences is a user's delivery policy. Stored objects may be
// partially populated; readers must merge them over DefaultPreferences rather
// than treating missing fields as zero values.
type NotificationPreferences struct {
	Types             map[NotificationType]TypePreference
	UserID            string
	QuietHoursStart   string
	QuietHoursEnd     string
	DigestTime        string
	QuietHoursEnabled bool
}

// Default preference values, used whenever a stored field is absent.
const (
	DefaultQuietHoursStart = "22:00"
	DefaultQuietHoursEnd   = "08:00"
	DefaultDigestTime      = "09:00"
	DefaultAdvanceDays     = 3
)

// DefaultPreferences returns the documented defaults for a user: all types
// enabled on the push channel, quiet hours configured but disabled.
func DefaultPreferences(userID string) NotificationPreferences {
	enabled := true
	push := true
	email := false
	advance := DefaultAdvanceDays

	types := make(map[NotificationType]TypePreference)
	for _, t := range []NotificationType{
		TypePaymentReminder,
		TypeCancellationDeadline,
		TypePriceChange,
		TypeDuplicateAlert,
		TypeDigest,
	} {
		types[t] = TypePreference{
			Enabled:     &enabled,
			Push:        &push,
			Email:       &email,
			AdvanceDays: &advance,
		}
	}

	return NotificationPreferences{
		UserID:            userID,
		QuietHoursEnabled: false,
		QuietHoursStart:   DefaultQuietHoursStart,
		QuietHoursEnd:     DefaultQuietHoursEnd,
		DigestTime:        DefaultDigestTime,
		Types:             types,
	}
}

// Merge overlays stored values on top of the receiver field-by-field.
// A partially populated stored object keeps defaults for whatever it omits.
func (p NotificationPreferences) Merge(stored *NotificationPreferences) NotificationPreferences {
	if stored == nil {
		return p
	}

	merged := p
	merged.QuietHoursEnabled = stored.QuietHoursEnabled
	if stored.QuietHoursStart != "" {
		merged.QuietHoursStart = stored.QuietHoursStart
	}
	if stored.QuietHoursEnd != "" {
		merged.QuietHoursEnd = stored.QuietHoursEnd
	}
	if stored.DigestTime != "" {
		merged.DigestTime = stored.DigestTime
	}

	merged.Types = make(map[NotificationType]TypePreference, len(p.Types))
	for t, def := range p.Types {
		merged.Types[t] = def
	}
	for t, override := range stored.Types {
		base := merged.Types[t]
		if override.Enabled != nil {
			base.Enabled = override.Enabled
		}
		if override.Push != nil {
			base.Push = override.Push
		}
		if override.Email != nil {
			base.Email = override.Email
		}
		if override.AdvanceDays != nil {
			base.AdvanceDays = override.AdvanceDays
		}
		merged.Types[t] = base
	}

	return merged
}

// TypeEnabled reports whether a notification type is enabled, defaulting to
// true when the type has no entry at all.
func (p NotificationPreferences) TypeEnabled(t NotificationType) bool {
	pref, ok := p.Types[t]
	if !ok || pref.Enabled == nil {
		return true
	}
	return *pref.Enabled
}
