package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadbox/leadbox/internal/models"
)

// ErrAccountNotFound is returned when a requested account cannot be found.
var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `
	id,
	user_id,
	email,
	imap_host,
	imap_port,
	imap_username,
	encrypted_imap_password,
	sync_enabled,
	last_sync_at,
	created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Email,
		&account.IMAPHost,
		&account.IMAPPort,
		&account.IMAPUsername,
		&account.EncryptedIMAPPassword,
		&account.SyncEnabled,
		&account.LastSyncAt,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveAccount inserts or updates an account. On insert the generated id is
// written back into the struct.
func SaveAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) error {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO accounts (
			user_id,
			email,
			imap_host,
			imap_port,
			imap_username,
			encrypted_imap_password,
			sync_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, email) DO UPDATE SET
			imap_host = EXCLUDED.imap_host,
			imap_port = EXCLUDED.imap_port,
			imap_username = EXCLUDED.imap_username,
			encrypted_imap_password = EXCLUDED.encrypted_imap_password,
			sync_enabled = EXCLUDED.sync_enabled
		RETURNING id
	`,
		account.UserID,
		account.Email,
		account.IMAPHost,
		account.IMAPPort,
		account.IMAPUsername,
		account.EncryptedIMAPPassword,
		account.SyncEnabled,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	account.ID = id
	return nil
}

// GetAccount returns the account with the given id.
func GetAccount(ctx context.Context, pool *pgxpool.Pool, accountID string) (*models.Account, error) {
	account, err := scanAccount(pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, accountID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListSyncEnabledAccounts returns every account with sync enabled.
func ListSyncEnabledAccounts(ctx context.Context, pool *pgxpool.Pool) ([]*models.Account, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE sync_enabled = TRUE
		ORDER BY created_at
	`)

	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateLastSyncedAt records when the account's backfill last completed.
func UpdateLastSyncedAt(ctx context.Context, pool *pgxpool.Pool, accountID string, syncedAt time.Time) error {
	tag, err := pool.Exec(ctx, `
		UPDATE accounts
		SET last_sync_at = $2
		WHERE id = $1
	`, accountID, syncedAt)

	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}
