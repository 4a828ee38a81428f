package normalize

import (
	"errors"
	"fmt"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbox/leadbox/internal/imap"
)

func rawMessage(uid uint32, source string, flags ...string) *imap.RawMessage {
	return &imap.RawMessage{
		UID:   uid,
		Flags: flags,
		Body:  []byte(source),
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("parses a complete message", func(t *testing.T) {
		source := "Message-ID: <m1@example.com>\r\n" +
			"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
			"From: Alice Smith <alice@example.com>\r\n" +
			"To: Bob <bob@example.com>, carol@example.com\r\n" +
			"Cc: Dave <dave@example.com>\r\n" +
			"Subject: Quick question\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Can you tell me more about pricing?\r\n"

		msg, err := Normalize(rawMessage(42, source), "acct-1", "INBOX", now)
		require.NoError(t, err)

		assert.Equal(t, "acct-1", msg.AccountID)
		assert.Equal(t, "<m1@example.com>", msg.MessageID)
		assert.Equal(t, int64(42), msg.UID)
		assert.Equal(t, "Quick question", msg.Subject)
		assert.Equal(t, "alice@example.com", msg.FromAddress)
		assert.Equal(t, "Alice Smith", msg.FromName)
		assert.Equal(t, []string{"Bob <bob@example.com>", "carol@example.com"}, msg.ToAddresses)
		assert.Equal(t, []string{"Dave <dave@example.com>"}, msg.CCAddresses)
		assert.Equal(t, "INBOX", msg.Folder)
		assert.Contains(t, msg.BodyText, "Can you tell me more about pricing?")
		assert.False(t, msg.IsRead)

		expected := time.Date(2006, 1, 2, 15, 4, 5, 0, time.FixedZone("", -7*3600))
		assert.True(t, msg.ReceivedAt.Equal(expected), "got %v", msg.ReceivedAt)
	})

	t.Run("missing subject uses placeholder", func(t *testing.T) {
		source := "Message-ID: <m2@example.com>\r\n" +
			"From: alice@example.com\r\n" +
			"\r\n" +
			"body\r\n"

		msg, err := Normalize(rawMessage(1, source), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.Equal(t, MissingSubjectPlaceholder, msg.Subject)
	})

	t.Run("missing sender and body stay empty", func(t *testing.T) {
		source := "Message-ID: <m3@example.com>\r\n" +
			"Subject: hi\r\n" +
			"\r\n"

		msg, err := Normalize(rawMessage(1, source), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.Empty(t, msg.FromAddress)
		assert.Empty(t, msg.FromName)
		assert.Empty(t, msg.BodyText)
	})

	t.Run("missing message id gets a synthetic identifier", func(t *testing.T) {
		source := "Subject: no id\r\n\r\nbody\r\n"

		msg, err := Normalize(rawMessage(7, source), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("acct-1-7-%d", now.UnixMilli()), msg.MessageID)
	})

	t.Run("invalid date falls back to ingestion time", func(t *testing.T) {
		source := "Message-ID: <m4@example.com>\r\n" +
			"Date: not a date\r\n" +
			"Subject: hi\r\n" +
			"\r\nbody\r\n"

		msg, err := Normalize(rawMessage(1, source), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.True(t, msg.ReceivedAt.Equal(now))
	})

	t.Run("missing date falls back to ingestion time", func(t *testing.T) {
		source := "Message-ID: <m5@example.com>\r\nSubject: hi\r\n\r\nbody\r\n"

		msg, err := Normalize(rawMessage(1, source), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.True(t, msg.ReceivedAt.Equal(now))
	})

	t.Run("seen flag maps to IsRead", func(t *testing.T) {
		source := "Message-ID: <m6@example.com>\r\nSubject: hi\r\n\r\nbody\r\n"

		msg, err := Normalize(rawMessage(1, source, goimap.SeenFlag), "acct-1", "INBOX", now)
		require.NoError(t, err)
		assert.True(t, msg.IsRead)
	})

	t.Run("nil raw message is a parse error", func(t *testing.T) {
		_, err := Normalize(nil, "acct-1", "INBOX", now)
		assert.True(t, errors.Is(err, ErrParse))
	})
}
