package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbox/leadbox/internal/models"
	"github.com/leadbox/leadbox/internal/testutil"
)

func TestDeliveryAttempts(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	account := createTestAccount(t, ctx, pool)

	msg := testMessage(account.ID)
	require.NoError(t, InsertMessage(ctx, pool, msg))

	code := 200
	success := &models.DeliveryAttempt{
		MessageID:    msg.ID,
		Target:       "https://hooks.example.com/leads",
		Status:       models.DeliveryStatusSuccess,
		ResponseCode: &code,
		ResponseBody: `{"ok":true}`,
	}
	require.NoError(t, InsertDeliveryAttempt(ctx, pool, success))
	assert.NotEmpty(t, success.ID)

	failure := &models.DeliveryAttempt{
		MessageID:    msg.ID,
		Target:       "https://hooks.example.com/leads",
		Status:       models.DeliveryStatusError,
		ResponseBody: "connection refused",
	}
	require.NoError(t, InsertDeliveryAttempt(ctx, pool, failure))

	attempts, err := GetDeliveryAttemptsForMessage(ctx, pool, msg.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	assert.Equal(t, models.DeliveryStatusSuccess, attempts[0].Status)
	require.NotNil(t, attempts[0].ResponseCode)
	assert.Equal(t, 200, *attempts[0].ResponseCode)
	assert.Equal(t, models.DeliveryStatusError, attempts[1].Status)
	assert.Nil(t, attempts[1].ResponseCode)

	t.Run("message with no attempts returns empty", func(t *testing.T) {
		other := testMessage(account.ID)
		other.MessageID = "<m2@example.com>"
		require.NoError(t, InsertMessage(ctx, pool, other))

		attempts, err := GetDeliveryAttemptsForMessage(ctx, pool, other.ID)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})
}
