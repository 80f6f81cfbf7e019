package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

// memStore is an in-memory notification store with the same conditional
// claim semantics as the SQLite layer.
type memStore struct {
	service.Storage
	notifications map[string]*model.ScheduledNotification
	prefs         map[string]*model.NotificationPreferences
	mu            sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		notifications: make(map[string]*model.ScheduledNotification),
		prefs:         make(map[string]*model.NotificationPreferences),
	}
}

func (m *memStore) CreateNotification(_ context.Context, n *model.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *memStore) GetNotificationByID(_ context.Context, id string) (*model.ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *memStore) GetDueNotifications(_ context.Context, now time.Time) ([]model.ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.ScheduledNotification
	for _, n := range m.notifications {
		if n.Status == model.StatusPending && !n.ScheduledFor.After(now) {
			due = append(due, *n)
		}
	}
	return due, nil
}

func (m *memStore) ClaimNotification(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if n.Status != model.StatusPending {
		return false, nil
	}
	n.Status = model.StatusProcessing
	return true, nil
}

func (m *memStore) UpdateNotification(_ context.Context, n *model.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[n.ID]; !ok {
		return common.ErrNotFound
	}
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *memStore) GetPreferences(_ context.Context, userID string) (*model.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[userID], nil
}

func (m *memStore) SavePreferences(_ context.Context, p *model.NotificationPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = p
	return nil
}

// byStatus counts stored notifications per status.
func (m *memStore) byStatus() map[model.NotificationStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.NotificationStatus]int)
	for _, n := range m.notifications {
		counts[n.Status]++
	}
	return counts
}

func (m *memStore) all() []model.ScheduledNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduledNotification
	for _, n := range m.notifications {
		out = append(out, *n)
	}
	return out
}
