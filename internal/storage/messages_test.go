package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
)

func testMessage(id string) *model.SubscriptionMessage {
	return &model.SubscriptionMessage{
		ID:         id,
		UserID:     "user-1",
		Sender:     "NETFLIX",
		Body:       "Your payment of $9.99 was received",
		DetectedAt: time.Now(),
		Confidence: 0.92,
	}
}

func TestSQLiteStorage_SaveAndGetMessages(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	msg := testMessage("msg-1")
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("Failed to save message: %v", err)
	}

	msgs, err := store.GetMessagesByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Got %d messages, want 1", len(msgs))
	}

	got := msgs[0]
	if got.Sender != "NETFLIX" {
		t.Errorf("Sender = %q, want NETFLIX", got.Sender)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
	// SaveMessage computes and persists the fingerprint.
	if got.ExtractedData[model.FingerprintKey] == "" {
		t.Error("Fingerprint not persisted in extracted data")
	}
	if got.ExtractedData[model.FingerprintKey] != msg.GenerateFingerprint() {
		t.Error("Persisted fingerprint does not match content hash")
	}
}

func TestSQLiteStorage_LinkMessage(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	subs := createTestSubscriptions(2)
	if err := store.SaveSubscriptions(ctx, subs); err != nil {
		t.Fatalf("Failed to save subscriptions: %v", err)
	}
	if err := store.SaveMessage(ctx, testMessage("msg-1")); err != nil {
		t.Fatalf("Failed to save message: %v", err)
	}

	if err := store.LinkMessage(ctx, "msg-1", subs[0].ID); err != nil {
		t.Fatalf("Failed to link message: %v", err)
	}

	// The link is stable: relinking to a different subscription fails.
	err := store.LinkMessage(ctx, "msg-1", subs[1].ID)
	if !errors.Is(err, common.ErrAlreadyLinked) {
		t.Errorf("Expected ErrAlreadyLinked, got %v", err)
	}

	msgs, err := store.GetMessagesByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to get messages: %v", err)
	}
	if msgs[0].SubscriptionID == nil || *msgs[0].SubscriptionID != subs[0].ID {
		t.Errorf("SubscriptionID = %v, want %q", msgs[0].SubscriptionID, subs[0].ID)
	}
}

func TestSQLiteStorage_LinkMessage_Missing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.LinkMessage(context.Background(), "msg-ghost", "sub-1")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
