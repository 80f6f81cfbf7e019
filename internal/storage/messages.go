package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
)

// SaveMessage inserts a subscription message, computing its fingerprint if
// the extracted-data bag does not carry one yet.
func (s *SQLiteStorage) SaveMessage(ctx context.Context, msg *model.SubscriptionMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMessage(msg); err != nil {
		return err
	}

	msg.Fingerprint() // ensure the bag carries the hash

	extracted, err := json.Marshal(msg.ExtractedData)
	if err != nil {
		return fmt.Errorf("failed to encode extracted data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscription_messages (id, user_id, sender, body,
			detected_at, confidence, extracted_data, subscription_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID, msg.UserID, msg.Sender, msg.Body,
		msg.DetectedAt, msg.Confidence, string(extracted), msg.SubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetMessagesByUser retrieves all messages for a user, newest first.
func (s *SQLiteStorage) GetMessagesByUser(ctx context.Context, userID string) ([]model.SubscriptionMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, sender, body, detected_at, confidence,
			extracted_data, subscription_id
		FROM subscription_messages
		WHERE user_id = ?
		ORDER BY detected_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.SubscriptionMessage
	for rows.Next() {
		var msg model.SubscriptionMessage
		var extracted sql.NullString
		var subID sql.NullString

		if scanErr := rows.Scan(
			&msg.ID, &msg.UserID, &msg.Sender, &msg.Body, &msg.DetectedAt,
			&msg.Confidence, &extracted, &subID,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan message: %w", scanErr)
		}

		if extracted.Valid && extracted.String != "" {
			if jsonErr := json.Unmarshal([]byte(extracted.String), &msg.ExtractedData); jsonErr != nil {
				return nil, fmt.Errorf("failed to decode extracted data for message %s: %w", msg.ID, jsonErr)
			}
		}
		if subID.Valid {
			msg.SubscriptionID = &subID.String
		}

		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// LinkMessage attaches a message to the subscription created from it. The
// link is stable: once set it cannot point anywhere else.
func (s *SQLiteStorage) LinkMessage(ctx context.Context, messageID, subscriptionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return err
	}
	if err := validateString(subscriptionID, "subscriptionID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscription_messages
		SET subscription_id = ?
		WHERE id = ? AND subscription_id IS NULL
	`, subscriptionID, messageID)
	if err != nil {
		return fmt.Errorf("failed to link message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check link result: %w", err)
	}
	if affected == 0 {
		// Either the message does not exist or it is already linked.
		var existing sql.NullString
		err = s.db.QueryRowContext(ctx,
			`SELECT subscription_id FROM subscription_messages WHERE id = ?`, messageID,
		).Scan(&existing)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: message %s", common.ErrNotFound, messageID)
		}
		if err != nil {
			return fmt.Errorf("failed to inspect message: %w", err)
		}
		return fmt.Errorf("%w: message %s", common.ErrAlreadyLinked, messageID)
	}
	return nil
}
