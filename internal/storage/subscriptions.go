package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/service"
)

// SaveSubscription inserts or updates a subscription.
func (s *SQLiteStorage) SaveSubscription(ctx context.Context, sub *model.Subscription) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubscription(sub); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveSubscriptionTx(ctx, tx, sub)
	})
}

// SaveSubscriptions saves a batch of subscriptions in one transaction.
func (s *SQLiteStorage) SaveSubscriptions(ctx context.Context, subs []model.Subscription) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("%w: subscriptions", ErrEmptySlice)
	}
	for i := range subs {
		if err := validateSubscription(&subs[i]); err != nil {
			return fmt.Errorf("subscription at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range subs {
			if err := saveSubscriptionTx(ctx, tx, &subs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveSubscriptionTx(ctx context.Context, tx *sql.Tx, sub *model.Subscription) error {
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, name, amount, billing_cycle,
			start_date, next_billing_date, category_id, notes, auto_detected,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			billing_cycle = excluded.billing_cycle,
			start_date = excluded.start_date,
			next_billing_date = excluded.next_billing_date,
			category_id = excluded.category_id,
			notes = excluded.notes,
			auto_detected = excluded.auto_detected,
			updated_at = excluded.updated_at
	`,
		sub.ID, sub.UserID, sub.Name, sub.Amount, string(sub.BillingCycle),
		nullTime(sub.StartDate), nullTime(sub.NextBillingDate), sub.CategoryID,
		sub.Notes, sub.AutoDetected, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// GetSubscriptionByID retrieves a subscription by id.
func (s *SQLiteStorage) GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, amount, billing_cycle, start_date,
			next_billing_date, category_id, notes, auto_detected,
			created_at, updated_at
		FROM subscriptions
		WHERE id = ?
	`, id)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: subscription %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetSubscriptions retrieves subscriptions matching the filter, newest first.
func (s *SQLiteStorage) GetSubscriptions(ctx context.Context, filter service.SubscriptionFilter) ([]model.Subscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, name, amount, billing_cycle, start_date,
			next_billing_date, category_id, notes, auto_detected,
			created_at, updated_at
		FROM subscriptions
		WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.CategoryID != nil {
		query += " AND category_id = ?"
		args = append(args, *filter.CategoryID)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, scanErr := scanSubscription(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", scanErr)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes a subscription and unlinks its messages.
func (s *SQLiteStorage) DeleteSubscription(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE subscription_messages SET subscription_id = NULL WHERE subscription_id = ?
		`, id); err != nil {
			return fmt.Errorf("failed to unlink messages: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: subscription %s", common.ErrNotFound, id)
		}
		return nil
	})
}

// MergeSubscriptions resolves a duplicate pair: messages pointing at the
// removed record are relinked to the kept one, then the duplicate is
// deleted. Runs atomically.
func (s *SQLiteStorage) MergeSubscriptions(ctx context.Context, keepID, removeID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(keepID, "keepID"); err != nil {
		return err
	}
	if err := validateString(removeID, "removeID"); err != nil {
		return err
	}
	if keepID == removeID {
		return fmt.Errorf("%w: cannot merge a subscription into itself", ErrInvalidSubscription)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id = ?)`, keepID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check kept subscription: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: subscription %s", common.ErrNotFound, keepID)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE subscription_messages SET subscription_id = ? WHERE subscription_id = ?
		`, keepID, removeID); err != nil {
			return fmt.Errorf("failed to relink messages: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, removeID)
		if err != nil {
			return fmt.Errorf("failed to delete duplicate: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: subscription %s", common.ErrNotFound, removeID)
		}
		return nil
	})
}

// rowScanner abstracts sql.Row and sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var sub model.Subscription
	var cycle string
	var startDate, nextBilling sql.NullTime
	var categoryID, notes sql.NullString

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Name, &sub.Amount, &cycle,
		&startDate, &nextBilling, &categoryID, &notes, &sub.AutoDetected,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.BillingCycle = model.BillingCycle(cycle)
	if startDate.Valid {
		sub.StartDate = startDate.Time
	}
	if nextBilling.Valid {
		sub.NextBillingDate = nextBilling.Time
	}
	if categoryID.Valid {
		sub.CategoryID = &categoryID.String
	}
	if notes.Valid {
		sub.Notes = notes.String
	}
	return &sub, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
