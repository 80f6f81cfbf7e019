package model

import "time"

// NotificationStatus tracks a scheduled notification through its lifecycle.
type NotificationStatus string

const (
	// StatusPending means the notification is waiting for its scheduled time.
	StatusPending NotificationStatus = "pending"
	// StatusProcessing means a delivery attempt has claimed the record.
	StatusProcessing NotificationStatus = "processing"
	// StatusSent means the notification was delivered successfully.
	StatusSent NotificationStatus = "sent"
	// StatusFailed means delivery failed past the retry cap. Terminal.
	StatusFailed NotificationStatus = "failed"
	// StatusCancelled means the notification was cancelled while pending. Terminal.
	StatusCancelled NotificationStatus = "cancelled"
)

// NotificationType categorizes what a notification is about.
type NotificationType string

const (
	// TypePaymentReminder warns about an upcoming billing date.
	TypePaymentReminder NotificationType = "payment_reminder"
	// TypeCancellationDeadline warns before a cancellation cutoff.
	TypeCancellationDeadline NotificationType = "cancellation_deadline"
	// TypePriceChange warns about an upcoming price change.
	TypePriceChange NotificationType = "price_change"
	// TypeDuplicateAlert reports a likely duplicate subscription.
	TypeDuplicateAlert NotificationType = "duplicate_alert"
	// TypeDigest is the daily summary notification.
	TypeDigest NotificationType = "digest"
)

// NotificationPriority orders delivery urgency.
type NotificationPriority string

const (
	// PriorityLow is informational.
	PriorityLow NotificationPriority = "low"
	// PriorityNormal is the default.
	PriorityNormal NotificationPriority = "normal"
	// PriorityHigh is urgent.
	PriorityHigh NotificationPriority = "high"
)

// RecurrenceFrequency is the unit a recurrence interval counts in.
type RecurrenceFrequency string

const (
	// FreqDaily repeats in days.
	FreqDaily RecurrenceFrequency = "daily"
	// FreqWeekly repeats in weeks.
	FreqWeekly RecurrenceFrequency = "weekly"
	// FreqMonthly repeats in calendar months.
	FreqMonthly RecurrenceFrequency = "monthly"
	// FreqYearly repeats in calendar years.
	FreqYearly RecurrenceFrequency = "yearly"
)

// RecurrencePattern describes a repeating schedule with an optional stop
// condition. Either EndDate or MaxOccurrences may bound the series.
type RecurrencePattern struct {
	EndDate        *time.Time
	MaxOccurrences *int
	Frequency      RecurrenceFrequency
	Interval       int
}

// NextAfter computes the next occurrence from the previous scheduled time.
// The anchor is always the prior scheduled time, never "now", so a series
// keeps its cadence even when a delivery slips.
func (r *RecurrencePattern) NextAfter(prev time.Time) time.Time {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	switch r.Frequency {
	case FreqDaily:
		return prev.AddDate(0, 0, interval)
	case FreqWeekly:
		return prev.AddDate(0, 0, interval*7)
	case FreqMonthly:
		return prev.AddDate(0, interval, 0)
	case FreqYearly:
		return prev.AddDate(interval, 0, 0)
	default:
		return prev.AddDate(0, 0, interval)
	}
}

// Exhausted reports whether the series has run out: the occurrence count has
// reached MaxOccurrences, or the next occurrence falls after EndDate.
func (r *RecurrencePattern) Exhausted(occurrence int, next time.Time) bool {
	if r.MaxOccurrences != nil && occurrence >= *r.MaxOccurrences {
		return true
	}
	if r.EndDate != nil && next.After(*r.EndDate) {
		return true
	}
	return false
}

// ScheduledNotification is a notification queued for future delivery.
type ScheduledNotification struct {
	ScheduledFor      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	SentAt            *time.Time
	Recurrence        *RecurrencePattern
	PreviousID        *string
	ID                string
	UserID            string
	Title             string
	Message           string
	RelatedEntityID   string
	RelatedEntityType string
	LastError         string
	Type              NotificationType
	Priority          NotificationPriority
	Status            NotificationStatus
	RetryCount        int
	Occurrence        int
}

// IsTerminal reports whether the notification can no longer be delivered.
func (n *ScheduledNotification) IsTerminal() bool {
	return n.Status == StatusSent || n.Status == StatusFailed || n.Status == StatusCancelled
}
