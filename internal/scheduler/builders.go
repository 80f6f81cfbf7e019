package scheduler

import (
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/model"
)

// Builders for the common domain notifications. These only construct
// requests; all state-machine behavior lives in Schedule and the sweep.

// NewPaymentReminder builds a reminder fired daysBefore days ahead of a
// subscription's billing date.
func NewPaymentReminder(sub *model.Subscription, daysBefore int) Request {
	return Request{
		UserID: sub.UserID,
		Title:  fmt.Sprintf("%s payment due soon", sub.Name),
		Message: fmt.Sprintf("%s will charge $%.2f on %s.",
			sub.Name, sub.Amount, sub.NextBillingDate.Format("Jan 2")),
		Type:              model.TypePaymentReminder,
		Priority:          model.PriorityNormal,
		ScheduledFor:      reminderTime(sub.NextBillingDate, daysBefore),
		RelatedEntityID:   sub.ID,
		RelatedEntityType: "subscription",
	}
}

// NewCancellationDeadline builds a reminder fired daysBefore days ahead of a
// cancellation cutoff.
func NewCancellationDeadline(sub *model.Subscription, deadline time.Time, daysBefore int) Request {
	return Request{
		UserID: sub.UserID,
		Title:  fmt.Sprintf("Last chance to cancel %s", sub.Name),
		Message: fmt.Sprintf("Cancel %s by %s to avoid the next charge.",
			sub.Name, deadline.Format("Jan 2")),
		Type:              model.TypeCancellationDeadline,
		Priority:          model.PriorityHigh,
		ScheduledFor:      reminderTime(deadline, daysBefore),
		RelatedEntityID:   sub.ID,
		RelatedEntityType: "subscription",
	}
}

// NewPriceChangeAlert builds an alert fired daysBefore days ahead of a price
// change taking effect.
func NewPriceChangeAlert(sub *model.Subscription, newAmount float64, effective time.Time, daysBefore int) Request {
	return Request{
		UserID: sub.UserID,
		Title:  fmt.Sprintf("%s price is changing", sub.Name),
		Message: fmt.Sprintf("%s will go from $%.2f to $%.2f on %s.",
			sub.Name, sub.Amount, newAmount, effective.Format("Jan 2")),
		Type:              model.TypePriceChange,
		Priority:          model.PriorityHigh,
		ScheduledFor:      reminderTime(effective, daysBefore),
		RelatedEntityID:   sub.ID,
		RelatedEntityType: "subscription",
	}
}

// reminderTime backs off daysBefore days from the event, keeping the event's
// time of day.
func reminderTime(event time.Time, daysBefore int) time.Time {
	if daysBefore < 0 {
		daysBefore = 0
	}
	return event.AddDate(0, 0, -daysBefore)
}
