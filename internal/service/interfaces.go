// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/subwatch/subwatch/internal/model"
)

// SubscriptionFilter defines filtering options for subscription queries.
type SubscriptionFilter struct {
	UserID     string
	CategoryID *string
	Limit      int
	Offset     int
}

// NotificationFilter defines filtering options for notification queries.
type NotificationFilter struct {
	UserID string
	Status model.NotificationStatus
	Limit  int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Subscription operations
	SaveSubscription(ctx context.Context, sub *model.Subscription) error
	SaveSubscriptions(ctx context.Context, subs []model.Subscription) error
	GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error)
	GetSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	MergeSubscriptions(ctx context.Context, keepID, removeID string) error

	// Message operations
	SaveMessage(ctx context.Context, msg *model.SubscriptionMessage) error
	GetMessagesByUser(ctx context.Context, userID string) ([]model.SubscriptionMessage, error)
	LinkMessage(ctx context.Context, messageID, subscriptionID string) error

	// Notification operations
	CreateNotification(ctx context.Context, n *model.ScheduledNotification) error
	GetNotificationByID(ctx context.Context, id string) (*model.ScheduledNotification, error)
	GetDueNotifications(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error)
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.ScheduledNotification, error)
	ClaimNotification(ctx context.Context, id string) (bool, error)
	UpdateNotification(ctx context.Context, n *model.ScheduledNotification) error

	// Preference operations
	GetPreferences(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	SavePreferences(ctx context.Context, prefs *model.NotificationPreferences) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Deliverer dispatches a notification to the user through a platform channel
// (push, local notification, console). Implementations must be safe for
// concurrent use: the periodic sweep and precise timers share one instance.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.ScheduledNotification) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
