// Package scheduler queues notifications for future delivery and drives them
// through the pending/processing/sent lifecycle, with retry on failure and
// recurring schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/prefs"
	"github.com/subwatch/subwatch/internal/service"
)

const (
	// MaxRetries is how many redeliveries are attempted before a
	// notification is marked failed.
	MaxRetries = 3
	// SweepInterval is how often the periodic sweep re-evaluates due
	// pending notifications.
	SweepInterval = 60 * time.Second
	// timerHorizon bounds how far ahead a precise one-shot timer is armed.
	// Anything further out is left to the sweep.
	timerHorizon = time.Hour
)

// Request describes a notification to schedule.
type Request struct {
	ScheduledFor      time.Time
	Recurrence        *model.RecurrencePattern
	UserID            string
	Title             string
	Message           string
	RelatedEntityID   string
	RelatedEntityType string
	Type              model.NotificationType
	Priority          model.NotificationPriority
}

// Scheduler persists scheduled notifications and delivers them when due.
// One instance is constructed at startup and shared by the sweep loop and
// any precise timers; the stored status is the single arbiter of whether a
// record has been handled.
type Scheduler struct {
	storage   service.Storage
	deliverer service.Deliverer
	prefs     *prefs.Service
	clock     func() time.Time
	timers    map[string]*time.Timer
	timerMu   sync.Mutex
}

// New creates a scheduler.
func New(storage service.Storage, deliverer service.Deliverer, prefService *prefs.Service) *Scheduler {
	return &Scheduler{
		storage:   storage,
		deliverer: deliverer,
		prefs:     prefService,
		clock:     time.Now,
		timers:    make(map[string]*time.Timer),
	}
}

// Schedule validates and persists a new pending notification. The scheduled
// time must be strictly in the future. Notifications due within the next
// hour also get a precise timer so delivery does not wait for the sweep.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (*model.ScheduledNotification, error) {
	now := s.clock()
	if !req.ScheduledFor.After(now) {
		return nil, fmt.Errorf("%w: %s", common.ErrPastSchedule, req.ScheduledFor.Format(time.RFC3339))
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	n := &model.ScheduledNotification{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		Title:             req.Title,
		Message:           req.Message,
		Type:              req.Type,
		Priority:          priority,
		ScheduledFor:      req.ScheduledFor,
		Status:            model.StatusPending,
		RetryCount:        0,
		RelatedEntityID:   req.RelatedEntityID,
		RelatedEntityType: req.RelatedEntityType,
		Recurrence:        req.Recurrence,
		Occurrence:        1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.storage.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	s.armTimer(n)

	slog.Debug("Scheduled notification",
		"id", n.ID,
		"type", n.Type,
		"scheduled_for", n.ScheduledFor)

	return n, nil
}

// ProcessDue is the periodic sweep: it claims and delivers every pending
// notification whose scheduled time has arrived, and returns how many were
// delivered successfully. The sweep is idempotent; records claimed by a
// precise timer in the meantime are skipped.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	due, err := s.storage.GetDueNotifications(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to query due notifications: %w", err)
	}

	delivered := 0
	for i := range due {
		ok, err := s.processOne(ctx, &due[i])
		if err != nil {
			common.LogError(err, "Failed to process notification", common.Fields{
				"id": due[i].ID,
			})
			continue
		}
		if ok {
			delivered++
		}
	}

	return delivered, nil
}

// processOne claims a single notification and attempts delivery. Returns
// true only when the notification was delivered by this call.
func (s *Scheduler) processOne(ctx context.Context, n *model.ScheduledNotification) (bool, error) {
	// The conditional claim is the arbiter between the sweep and precise
	// timers: whoever flips pending -> processing owns delivery.
	claimed, err := s.storage.ClaimNotification(ctx, n.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	if !claimed {
		return false, nil
	}
	n.Status = model.StatusProcessing

	if verdict := s.prefs.DeliveryVerdict(ctx, n.UserID, n.Type); verdict != prefs.VerdictAllow {
		return false, s.suppress(ctx, n, verdict)
	}

	if err := s.deliverer.Deliver(ctx, n); err != nil {
		return false, s.recordFailure(ctx, n, err)
	}

	return true, s.recordSuccess(ctx, n)
}

// suppress handles a notification blocked by user preferences. A disabled
// type cancels it outright, quiet hours or not; a quiet-hours block pushes
// it to the end of the window.
func (s *Scheduler) suppress(ctx context.Context, n *model.ScheduledNotification, verdict prefs.Verdict) error {
	now := s.clock()

	if verdict == prefs.VerdictQuietHours {
		resume := s.prefs.QuietHoursEndTime(ctx, n.UserID)
		if !resume.After(now) {
			// The window changed between the verdict and here; let the
			// next sweep re-evaluate.
			resume = now.Add(SweepInterval)
		}
		n.Status = model.StatusPending
		n.ScheduledFor = resume
		n.UpdatedAt = now
		if err := s.storage.UpdateNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to defer suppressed notification: %w", err)
		}
		s.armTimer(n)
		slog.Info("Notification deferred past quiet hours",
			"id", n.ID,
			"resume_at", resume)
		return nil
	}

	n.Status = model.StatusCancelled
	n.UpdatedAt = now
	if err := s.storage.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to cancel suppressed notification: %w", err)
	}
	slog.Info("Notification cancelled by user preferences",
		"id", n.ID,
		"type", n.Type)
	return nil
}

// recordSuccess marks the notification sent and spawns the next occurrence
// of a recurring series.
func (s *Scheduler) recordSuccess(ctx context.Context, n *model.ScheduledNotification) error {
	now := s.clock()
	n.Status = model.StatusSent
	n.SentAt = &now
	n.UpdatedAt = now

	if err := s.storage.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	slog.Info("Notification delivered",
		"id", n.ID,
		"type", n.Type,
		"occurrence", n.Occurrence)

	if n.Recurrence != nil {
		if err := s.scheduleNextOccurrence(ctx, n); err != nil {
			return err
		}
	}

	return nil
}

// recordFailure increments the retry counter and either reschedules with
// exponential backoff or marks the notification failed for good.
func (s *Scheduler) recordFailure(ctx context.Context, n *model.ScheduledNotification, deliverErr error) error {
	now := s.clock()
	n.RetryCount++
	n.LastError = deliverErr.Error()
	n.UpdatedAt = now

	// An error the deliverer marks non-retryable (revoked token, bad
	// channel) skips the backoff entirely; plain errors keep retrying.
	var marked *common.RetryableError
	permanent := errors.As(deliverErr, &marked) && !common.IsRetryable(deliverErr)

	if permanent || n.RetryCount > MaxRetries {
		n.Status = model.StatusFailed
		if err := s.storage.UpdateNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to mark notification failed: %w", err)
		}
		common.LogError(deliverErr, "Notification failed permanently", common.Fields{
			"id":      n.ID,
			"retries": n.RetryCount,
		})
		return nil
	}

	backoff := time.Duration(math.Pow(2, float64(n.RetryCount))) * time.Minute
	n.Status = model.StatusPending
	n.ScheduledFor = now.Add(backoff)

	if err := s.storage.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}
	s.armTimer(n)

	slog.Warn("Delivery failed, retrying with backoff",
		"id", n.ID,
		"retry", n.RetryCount,
		"backoff", backoff,
		"error", deliverErr)

	return nil
}

// scheduleNextOccurrence creates the next pending record of a recurring
// series, anchored to the previous scheduled time. Nothing is created once
// the series is exhausted.
func (s *Scheduler) scheduleNextOccurrence(ctx context.Context, prev *model.ScheduledNotification) error {
	next := prev.Recurrence.NextAfter(prev.ScheduledFor)
	if prev.Recurrence.Exhausted(prev.Occurrence, next) {
		slog.Debug("Recurring series complete",
			"id", prev.ID,
			"occurrences", prev.Occurrence)
		return nil
	}

	now := s.clock()
	n := &model.ScheduledNotification{
		ID:                uuid.NewString(),
		UserID:            prev.UserID,
		Title:             prev.Title,
		Message:           prev.Message,
		Type:              prev.Type,
		Priority:          prev.Priority,
		ScheduledFor:      next,
		Status:            model.StatusPending,
		RelatedEntityID:   prev.RelatedEntityID,
		RelatedEntityType: prev.RelatedEntityType,
		Recurrence:        prev.Recurrence,
		Occurrence:        prev.Occurrence + 1,
		PreviousID:        &prev.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.storage.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to schedule next occurrence: %w", err)
	}
	s.armTimer(n)

	return nil
}

// Cancel transitions a pending notification to cancelled. Cancelling a
// notification in any other state is an error.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	n, err := s.storage.GetNotificationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status != model.StatusPending {
		return fmt.Errorf("%w: cannot cancel %s notification %s", common.ErrNotPending, n.Status, id)
	}

	n.Status = model.StatusCancelled
	n.UpdatedAt = s.clock()
	if err := s.storage.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to cancel notification: %w", err)
	}

	s.disarmTimer(id)
	return nil
}

// Reschedule moves a pending notification to a new future time.
func (s *Scheduler) Reschedule(ctx context.Context, id string, newTime time.Time) error {
	if !newTime.After(s.clock()) {
		return fmt.Errorf("%w: %s", common.ErrPastSchedule, newTime.Format(time.RFC3339))
	}

	n, err := s.storage.GetNotificationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status != model.StatusPending {
		return fmt.Errorf("%w: cannot reschedule %s notification %s", common.ErrNotPending, n.Status, id)
	}

	n.ScheduledFor = newTime
	n.UpdatedAt = s.clock()
	if err := s.storage.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}

	s.disarmTimer(id)
	s.armTimer(n)
	return nil
}

// Run drives periodic sweeps until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	defer s.Stop()

	slog.Info("Notification scheduler started", "sweep_interval", SweepInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			count, err := s.ProcessDue(ctx)
			if err != nil {
				common.LogError(err, "Sweep failed", nil)
				continue
			}
			if count > 0 {
				slog.Info("Sweep delivered notifications", "count", count)
			}
		}
	}
}

// Stop disarms all precise timers.
func (s *Scheduler) Stop() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// armTimer arms a precise one-shot timer when the notification is due within
// the horizon. The timer only reduces latency; the sweep would deliver the
// notification anyway.
func (s *Scheduler) armTimer(n *model.ScheduledNotification) {
	until := n.ScheduledFor.Sub(s.clock())
	if until > timerHorizon {
		return
	}
	if until < 0 {
		until = 0
	}

	id := n.ID
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}
	s.timers[id] = time.AfterFunc(until, func() {
		s.fireTimer(id)
	})
}

// disarmTimer stops and forgets the timer for a notification, if any.
func (s *Scheduler) disarmTimer(id string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// fireTimer is the precise-timer delivery path. It re-reads the stored
// record and no-ops unless it is still pending; the sweep may have handled
// it already.
func (s *Scheduler) fireTimer(id string) {
	s.timerMu.Lock()
	delete(s.timers, id)
	s.timerMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.storage.GetNotificationByID(ctx, id)
	if err != nil {
		common.LogError(err, "Timer fired for unloadable notification", common.Fields{"id": id})
		return
	}
	if n.Status != model.StatusPending {
		return
	}

	if _, err := s.processOne(ctx, n); err != nil {
		common.LogError(err, "Timer delivery failed", common.Fields{"id": id})
	}
}
