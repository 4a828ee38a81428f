package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadbox/leadbox/internal/models"
)

// InsertDeliveryAttempt records one webhook delivery attempt. Attempts are
// recorded unconditionally, whether the delivery succeeded or not.
func InsertDeliveryAttempt(ctx context.Context, pool *pgxpool.Pool, attempt *models.DeliveryAttempt) error {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO delivery_attempts (message_id, target, status, response_code, response_body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		attempt.MessageID,
		attempt.Target,
		attempt.Status,
		attempt.ResponseCode,
		attempt.ResponseBody,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to insert delivery attempt: %w", err)
	}

	attempt.ID = id
	return nil
}

// GetDeliveryAttemptsForMessage returns all delivery attempts for a message,
// oldest first.
func GetDeliveryAttemptsForMessage(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.DeliveryAttempt, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, message_id, target, status, response_code, response_body, created_at
		FROM delivery_attempts
		WHERE message_id = $1
		ORDER BY created_at
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		var att models.DeliveryAttempt
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.Target,
			&att.Status,
			&att.ResponseCode,
			&att.ResponseBody,
			&att.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		attempts = append(attempts, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery attempts: %w", err)
	}

	return attempts, nil
}
