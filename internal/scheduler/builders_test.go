package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subwatch/subwatch/internal/model"
)

func testSubscription() *model.Subscription {
	return &model.Subscription{
		ID:              "sub-1",
		UserID:          "user-1",
		Name:            "Netflix",
		Amount:          15.49,
		BillingCycle:    model.CycleMonthly,
		NextBillingDate: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewPaymentReminder(t *testing.T) {
	sub := testSubscription()

	req := NewPaymentReminder(sub, 3)

	assert.Equal(t, model.TypePaymentReminder, req.Type)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "sub-1", req.RelatedEntityID)
	assert.Equal(t, "subscription", req.RelatedEntityType)
	assert.Equal(t, time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC), req.ScheduledFor)
	assert.Contains(t, req.Message, "$15.49")
	assert.Contains(t, req.Message, "Jul 1")
}

func TestNewCancellationDeadline(t *testing.T) {
	sub := testSubscription()
	deadline := time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)

	req := NewCancellationDeadline(sub, deadline, 2)

	assert.Equal(t, model.TypeCancellationDeadline, req.Type)
	assert.Equal(t, model.PriorityHigh, req.Priority)
	assert.Equal(t, deadline.AddDate(0, 0, -2), req.ScheduledFor)
}

func TestNewPriceChangeAlert(t *testing.T) {
	sub := testSubscription()
	effective := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	req := NewPriceChangeAlert(sub, 17.99, effective, 7)

	assert.Equal(t, model.TypePriceChange, req.Type)
	assert.Contains(t, req.Message, "$15.49")
	assert.Contains(t, req.Message, "$17.99")
	assert.Equal(t, effective.AddDate(0, 0, -7), req.ScheduledFor)
}

func TestReminderTime_NegativeDaysClamped(t *testing.T) {
	event := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, event, reminderTime(event, -5))
}
