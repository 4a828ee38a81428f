package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadbox/leadbox/internal/models"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

// ErrDuplicateMessage is returned by InsertMessage when a message with the
// same (account_id, message_id) already exists. Callers treat this as
// "already ingested", not as a failure.
var ErrDuplicateMessage = errors.New("message already exists")

// uniqueViolation is the Postgres error code for a unique constraint violation.
const uniqueViolation = "23505"

const messageColumns = `
	id,
	account_id,
	message_id,
	uid,
	subject,
	from_address,
	from_name,
	to_addresses,
	cc_addresses,
	folder,
	body_text,
	body_html,
	received_at,
	is_read,
	category,
	category_confidence,
	ingested_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.AccountID,
		&msg.MessageID,
		&msg.UID,
		&msg.Subject,
		&msg.FromAddress,
		&msg.FromName,
		&msg.ToAddresses,
		&msg.CCAddresses,
		&msg.Folder,
		&msg.BodyText,
		&msg.BodyHTML,
		&msg.ReceivedAt,
		&msg.IsRead,
		&msg.Category,
		&msg.CategoryConfidence,
		&msg.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsertMessage inserts a canonical message. It never updates: the unique
// constraint on (account_id, message_id) is the dedup contract, and a
// violation is reported as ErrDuplicateMessage.
func InsertMessage(ctx context.Context, pool *pgxpool.Pool, message *models.Message) error {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO messages (
			account_id,
			message_id,
			uid,
			subject,
			from_address,
			from_name,
			to_addresses,
			cc_addresses,
			folder,
			body_text,
			body_html,
			received_at,
			is_read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		message.AccountID,
		message.MessageID,
		message.UID,
		message.Subject,
		message.FromAddress,
		message.FromName,
		message.ToAddresses,
		message.CCAddresses,
		message.Folder,
		message.BodyText,
		message.BodyHTML,
		message.ReceivedAt,
		message.IsRead,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	message.ID = id
	return nil
}

// FindMessage returns the message with the given remote identity, or
// ErrMessageNotFound. This is the dedup gate's existence check.
func FindMessage(ctx context.Context, pool *pgxpool.Pool, accountID, messageID string) (*models.Message, error) {
	msg, err := scanMessage(pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE account_id = $1 AND message_id = $2
	`, accountID, messageID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}

	return msg, nil
}

// GetMessageByID returns a message by its primary key.
func GetMessageByID(ctx context.Context, pool *pgxpool.Pool, id string) (*models.Message, error) {
	msg, err := scanMessage(pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// UpdateMessageCategory attaches the classification result to a stored message.
func UpdateMessageCategory(ctx context.Context, pool *pgxpool.Pool, id, category string, confidence float64) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET category = $2, category_confidence = $3
		WHERE id = $1
	`, id, category, confidence)

	if err != nil {
		return fmt.Errorf("failed to update message category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}
