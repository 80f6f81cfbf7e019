package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

const notificationColumns = `id, user_id, title, message, type, priority,
	scheduled_for, status, retry_count, last_error, related_entity_id,
	related_entity_type, recurrence, occurrence, previous_id, sent_at,
	created_at, updated_at`

// CreateNotification persists a new scheduled notification.
func (s *SQLiteStorage) CreateNotification(ctx context.Context, n *model.ScheduledNotification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNotification(n); err != nil {
		return err
	}

	recurrence, err := encodeRecurrence(n.Recurrence)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_notifications (id, user_id, title, message,
			type, priority, scheduled_for, status, retry_count, last_error,
			related_entity_id, related_entity_type, recurrence, occurrence,
			previous_id, sent_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), string(n.Priority),
		n.ScheduledFor, string(n.Status), n.RetryCount, n.LastError,
		n.RelatedEntityID, n.RelatedEntityType, recurrence, n.Occurrence,
		n.PreviousID, n.SentAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotificationByID retrieves a notification by id.
func (s *SQLiteStorage) GetNotificationByID(ctx context.Context, id string) (*model.ScheduledNotification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM scheduled_notifications WHERE id = ?`, id)

	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: notification %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// GetDueNotifications returns every pending notification whose scheduled
// time has arrived, oldest first.
func (s *SQLiteStorage) GetDueNotifications(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+`
		FROM scheduled_notifications
		WHERE status = ? AND scheduled_for <= ?
		ORDER BY scheduled_for ASC`,
		string(model.StatusPending), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectNotifications(rows)
}

// GetNotifications retrieves notifications matching the filter, most recent
// schedule first.
func (s *SQLiteStorage) GetNotifications(ctx context.Context, filter service.NotificationFilter) ([]model.ScheduledNotification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + notificationColumns + ` FROM scheduled_notifications WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY scheduled_for DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectNotifications(rows)
}

// ClaimNotification conditionally flips a notification from pending to
// processing. Returns false when some other worker got there first; the
// caller must then leave the record alone.
func (s *SQLiteStorage) ClaimNotification(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_notifications
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(model.StatusProcessing), time.Now(), id, string(model.StatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	return affected > 0, nil
}

// UpdateNotification writes the mutable fields of a notification back.
func (s *SQLiteStorage) UpdateNotification(ctx context.Context, n *model.ScheduledNotification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNotification(n); err != nil {
		return err
	}

	recurrence, err := encodeRecurrence(n.Recurrence)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_notifications
		SET title = ?, message = ?, priority = ?, scheduled_for = ?,
			status = ?, retry_count = ?, last_error = ?, recurrence = ?,
			sent_at = ?, updated_at = ?
		WHERE id = ?
	`,
		n.Title, n.Message, string(n.Priority), n.ScheduledFor,
		string(n.Status), n.RetryCount, n.LastError, recurrence,
		n.SentAt, n.UpdatedAt, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: notification %s", common.ErrNotFound, n.ID)
	}
	return nil
}

func collectNotifications(rows *sql.Rows) ([]model.ScheduledNotification, error) {
	var out []model.ScheduledNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNotification(row rowScanner) (*model.ScheduledNotification, error) {
	var n model.ScheduledNotification
	var typ, priority, status string
	var lastError, relatedID, relatedType, recurrence, previousID sql.NullString
	var sentAt sql.NullTime

	err := row.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &priority,
		&n.ScheduledFor, &status, &n.RetryCount, &lastError, &relatedID,
		&relatedType, &recurrence, &n.Occurrence, &previousID, &sentAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Type = model.NotificationType(typ)
	n.Priority = model.NotificationPriority(priority)
	n.Status = model.NotificationStatus(status)
	if lastError.Valid {
		n.LastError = lastError.String
	}
	if relatedID.Valid {
		n.RelatedEntityID = relatedID.String
	}
	if relatedType.Valid {
		n.RelatedEntityType = relatedType.String
	}
	if previousID.Valid {
		n.PreviousID = &previousID.String
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	if recurrence.Valid && recurrence.String != "" {
		var pattern model.RecurrencePattern
		if jsonErr := json.Unmarshal([]byte(recurrence.String), &pattern); jsonErr != nil {
			return nil, fmt.Errorf("failed to decode recurrence for notification %s: %w", n.ID, jsonErr)
		}
		n.Recurrence = &pattern
	}

	return &n, nil
}

// encodeRecurrence serializes a recurrence pattern, mapping nil to NULL.
func encodeRecurrence(r *model.RecurrencePattern) (any, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recurrence: %w", err)
	}
	return string(data), nil
}
