package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/subwatch/subwatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrInvalidNotification = errors.New("invalid notification")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSubscription validates a single subscription.
func validateSubscription(sub *model.Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: subscription", ErrNilParameter)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSubscription)
	}
	if strings.TrimSpace(sub.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSubscription)
	}
	if sub.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidSubscription)
	}
	if sub.BillingCycle != "" && !sub.BillingCycle.IsValid() {
		return fmt.Errorf("%w: unknown billing cycle %q", ErrInvalidSubscription, sub.BillingCycle)
	}
	return nil
}

// validateMessage validates a single subscription message.
func validateMessage(msg *model.SubscriptionMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message", ErrNilParameter)
	}
	if strings.TrimSpace(msg.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidMessage)
	}
	return nil
}

// validateNotification validates a single scheduled notification.
func validateNotification(n *model.ScheduledNotification) error {
	if n == nil {
		return fmt.Errorf("%w: notification", ErrNilParameter)
	}
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNotification)
	}
	if n.ScheduledFor.IsZero() {
		return fmt.Errorf("%w: missing scheduled time", ErrInvalidNotification)
	}
	if n.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidNotification)
	}
	return nil
}
