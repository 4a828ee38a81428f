package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadbox/leadbox/internal/models"
)

// Store bundles the connection pool behind methods so the pipeline and the
// engine can be tested against in-memory fakes instead of Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindMessage returns a stored message by remote identity, or ErrMessageNotFound.
func (s *Store) FindMessage(ctx context.Context, accountID, messageID string) (*models.Message, error) {
	return FindMessage(ctx, s.pool, accountID, messageID)
}

// InsertMessage inserts a canonical message, returning ErrDuplicateMessage on
// a (account_id, message_id) conflict.
func (s *Store) InsertMessage(ctx context.Context, message *models.Message) error {
	return InsertMessage(ctx, s.pool, message)
}

// UpdateMessageCategory attaches a classification result to a stored message.
func (s *Store) UpdateMessageCategory(ctx context.Context, id, category string, confidence float64) error {
	return UpdateMessageCategory(ctx, s.pool, id, category, confidence)
}

// RecordDeliveryAttempt persists one webhook delivery attempt.
func (s *Store) RecordDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	return InsertDeliveryAttempt(ctx, s.pool, attempt)
}

// ListSyncEnabledAccounts returns every account with sync enabled.
func (s *Store) ListSyncEnabledAccounts(ctx context.Context) ([]*models.Account, error) {
	return ListSyncEnabledAccounts(ctx, s.pool)
}

// GetAccount returns the account with the given id, or ErrAccountNotFound.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return GetAccount(ctx, s.pool, accountID)
}

// UpdateLastSyncedAt records when the account's backfill last completed.
func (s *Store) UpdateLastSyncedAt(ctx context.Context, accountID string, syncedAt time.Time) error {
	return UpdateLastSyncedAt(ctx, s.pool, accountID, syncedAt)
}
