package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/subwatch/subwatch/internal/model"
)

var errDeliveryFailed = errors.New("simulated delivery failure")

// MockDeliverer is a mock implementation of service.Deliverer for testing.
type MockDeliverer struct {
	DeliverError error
	Delivered    []model.ScheduledNotification
	FailFirst    int
	callCount    int
	mu           sync.Mutex
}

// Deliver records the notification, or fails with the configured error.
// When FailFirst is set, the first FailFirst calls fail and later calls
// succeed, which exercises the retry path.
func (m *MockDeliverer) Deliver(_ context.Context, n *model.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	if m.DeliverError != nil {
		return m.DeliverError
	}
	if m.callCount <= m.FailFirst {
		return errDeliveryFailed
	}

	m.Delivered = append(m.Delivered, *n)
	return nil
}

// CallCount returns how many delivery attempts were made.
func (m *MockDeliverer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
