package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

func TestSQLiteStorage_CreateAndGetNotification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	maxOcc := 5
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	n := testNotification("notif-1", time.Now().Add(time.Hour))
	n.Recurrence = &model.RecurrencePattern{
		Frequency:      model.FreqWeekly,
		Interval:       2,
		EndDate:        &end,
		MaxOccurrences: &maxOcc,
	}

	if err := store.CreateNotification(ctx, n); err != nil {
		t.Fatalf("Failed to create notification: %v", err)
	}

	got, err := store.GetNotificationByID(ctx, "notif-1")
	if err != nil {
		t.Fatalf("Failed to get notification: %v", err)
	}

	if got.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", got.RetryCount)
	}
	if got.Recurrence == nil {
		t.Fatal("Recurrence not round-tripped")
	}
	if got.Recurrence.Frequency != model.FreqWeekly || got.Recurrence.Interval != 2 {
		t.Errorf("Recurrence = %+v, want weekly interval 2", got.Recurrence)
	}
	if got.Recurrence.MaxOccurrences == nil || *got.Recurrence.MaxOccurrences != 5 {
		t.Errorf("MaxOccurrences = %v, want 5", got.Recurrence.MaxOccurrences)
	}
	if got.Recurrence.EndDate == nil || !got.Recurrence.EndDate.Equal(end) {
		t.Errorf("EndDate = %v, want %v", got.Recurrence.EndDate, end)
	}
}

func TestSQLiteStorage_GetDueNotifications(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	overdue := testNotification("notif-overdue", now.Add(-time.Hour))
	dueNow := testNotification("notif-due", now.Add(-time.Second))
	future := testNotification("notif-future", now.Add(time.Hour))
	sent := testNotification("notif-sent", now.Add(-2*time.Hour))
	sent.Status = model.StatusSent

	for _, n := range []*model.ScheduledNotification{overdue, dueNow, future, sent} {
		if err := store.CreateNotification(ctx, n); err != nil {
			t.Fatalf("Failed to create %s: %v", n.ID, err)
		}
	}

	due, err := store.GetDueNotifications(ctx, now)
	if err != nil {
		t.Fatalf("Failed to get due notifications: %v", err)
	}

	if len(due) != 2 {
		t.Fatalf("Got %d due notifications, want 2", len(due))
	}
	// Oldest scheduled time first.
	if due[0].ID != "notif-overdue" || due[1].ID != "notif-due" {
		t.Errorf("Due order = [%s, %s], want [notif-overdue, notif-due]", due[0].ID, due[1].ID)
	}
}

func TestSQLiteStorage_ClaimNotification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	n := testNotification("notif-1", time.Now().Add(-time.Minute))
	if err := store.CreateNotification(ctx, n); err != nil {
		t.Fatalf("Failed to create notification: %v", err)
	}

	claimed, err := store.ClaimNotification(ctx, "notif-1")
	if err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("First claim should succeed")
	}

	// Second claim must lose: the record is no longer pending.
	claimed, err = store.ClaimNotification(ctx, "notif-1")
	if err != nil {
		t.Fatalf("Second claim errored: %v", err)
	}
	if claimed {
		t.Error("Second claim should not succeed")
	}

	got, err := store.GetNotificationByID(ctx, "notif-1")
	if err != nil {
		t.Fatalf("Failed to get notification: %v", err)
	}
	if got.Status != model.StatusProcessing {
		t.Errorf("Status = %q, want processing", got.Status)
	}
}

func TestSQLiteStorage_UpdateNotification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	n := testNotification("notif-1", time.Now().Add(time.Hour))
	if err := store.CreateNotification(ctx, n); err != nil {
		t.Fatalf("Failed to create notification: %v", err)
	}

	sentAt := time.Now()
	n.Status = model.StatusSent
	n.SentAt = &sentAt
	n.RetryCount = 2
	n.LastError = "timeout talking to push gateway"
	n.UpdatedAt = sentAt

	if err := store.UpdateNotification(ctx, n); err != nil {
		t.Fatalf("Failed to update notification: %v", err)
	}

	got, err := store.GetNotificationByID(ctx, "notif-1")
	if err != nil {
		t.Fatalf("Failed to get notification: %v", err)
	}
	if got.Status != model.StatusSent {
		t.Errorf("Status = %q, want sent", got.Status)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}
	if got.LastError == "" {
		t.Error("LastError not persisted")
	}
	if got.SentAt == nil {
		t.Error("SentAt not persisted")
	}
}

func TestSQLiteStorage_UpdateNotification_Missing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	n := testNotification("notif-ghost", time.Now().Add(time.Hour))
	if err := store.UpdateNotification(context.Background(), n); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_GetNotifications_Filter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	a := testNotification("notif-a", now.Add(time.Hour))
	b := testNotification("notif-b", now.Add(2*time.Hour))
	b.Status = model.StatusCancelled
	c := testNotification("notif-c", now.Add(3*time.Hour))
	c.UserID = "user-2"

	for _, n := range []*model.ScheduledNotification{a, b, c} {
		if err := store.CreateNotification(ctx, n); err != nil {
			t.Fatalf("Failed to create %s: %v", n.ID, err)
		}
	}

	pending, err := store.GetNotifications(ctx, service.NotificationFilter{
		UserID: "user-1",
		Status: model.StatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "notif-a" {
		t.Errorf("Pending for user-1 = %+v, want only notif-a", pending)
	}
}
