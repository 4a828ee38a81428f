package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbox/leadbox/internal/models"
	"github.com/leadbox/leadbox/internal/testutil"
)

func TestSaveAndGetAccount(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	account := createTestAccount(t, ctx, pool)
	assert.NotEmpty(t, account.ID)

	got, err := GetAccount(ctx, pool, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "lead@example.com", got.Email)
	assert.Equal(t, 993, got.IMAPPort)
	assert.Equal(t, []byte("sealed"), got.EncryptedIMAPPassword)
	assert.True(t, got.SyncEnabled)
	assert.Nil(t, got.LastSyncAt)

	t.Run("saving the same user and email updates in place", func(t *testing.T) {
		update := &models.Account{
			UserID:                account.UserID,
			Email:                 account.Email,
			IMAPHost:              "imap2.example.com",
			IMAPPort:              143,
			IMAPUsername:          account.IMAPUsername,
			EncryptedIMAPPassword: []byte("resealed"),
			SyncEnabled:           false,
		}
		require.NoError(t, SaveAccount(ctx, pool, update))
		assert.Equal(t, account.ID, update.ID)

		got, err := GetAccount(ctx, pool, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "imap2.example.com", got.IMAPHost)
		assert.False(t, got.SyncEnabled)
	})

	t.Run("unknown id returns ErrAccountNotFound", func(t *testing.T) {
		_, err := GetAccount(ctx, pool, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestListSyncEnabledAccounts(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	enabled := createTestAccount(t, ctx, pool)

	disabled := &models.Account{
		UserID:                "user-2",
		Email:                 "paused@example.com",
		IMAPHost:              "imap.example.com",
		IMAPPort:              993,
		IMAPUsername:          "paused@example.com",
		EncryptedIMAPPassword: []byte("sealed"),
		SyncEnabled:           false,
	}
	require.NoError(t, SaveAccount(ctx, pool, disabled))

	accounts, err := ListSyncEnabledAccounts(ctx, pool)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, enabled.ID, accounts[0].ID)
}

func TestUpdateLastSyncedAt(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	account := createTestAccount(t, ctx, pool)

	syncedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, UpdateLastSyncedAt(ctx, pool, account.ID, syncedAt))

	got, err := GetAccount(ctx, pool, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	assert.True(t, got.LastSyncAt.Equal(syncedAt))

	err = UpdateLastSyncedAt(ctx, pool, "00000000-0000-0000-0000-000000000000", syncedAt)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
