package imap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbox/leadbox/internal/testutil"
)

func TestConnectAndLogin(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()

	require.NoError(t, Login(c, srv.Username(), srv.Password()))
}

func TestConnectFailure(t *testing.T) {
	_, err := ConnectToIMAP("127.0.0.1", 1, false)
	assert.Error(t, err)
}

func TestLoginFailure(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()

	assert.Error(t, Login(c, srv.Username(), "wrong password"))
}

func TestOpenFolderReadOnly(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()
	require.NoError(t, Login(c, srv.Username(), srv.Password()))

	mbox, err := OpenFolderReadOnly(c, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "INBOX", mbox.Name)

	_, err = OpenFolderReadOnly(c, "NoSuchFolder")
	assert.Error(t, err)
}

func TestSearchAndFetch(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	recentUID := srv.AddMessage(t, "INBOX", testutil.TestMessage{
		MessageID: "<recent@example.com>",
		Subject:   "Fresh lead",
		From:      "alice@example.com",
		To:        "username@example.com",
		Body:      "Very interested in a demo.",
		Date:      time.Now().Add(-time.Hour),
	})
	oldUID := srv.AddMessage(t, "INBOX", testutil.TestMessage{
		MessageID: "<old@example.com>",
		Subject:   "Ancient history",
		From:      "bob@example.com",
		To:        "username@example.com",
		Date:      time.Now().Add(-90 * 24 * time.Hour),
		Seen:      true,
	})

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()
	require.NoError(t, Login(c, srv.Username(), srv.Password()))
	_, err = OpenFolderReadOnly(c, "INBOX")
	require.NoError(t, err)

	t.Run("search since filters by internal date", func(t *testing.T) {
		uids, err := SearchReceivedSince(c, time.Now().Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Contains(t, uids, recentUID)
		assert.NotContains(t, uids, oldUID)
	})

	t.Run("search unseen skips seen messages", func(t *testing.T) {
		uids, err := SearchUnseen(c)
		require.NoError(t, err)
		assert.Contains(t, uids, recentUID)
		assert.NotContains(t, uids, oldUID)
	})

	t.Run("fetch returns the raw source without setting seen", func(t *testing.T) {
		raw, err := FetchRaw(c, recentUID)
		require.NoError(t, err)
		assert.Equal(t, recentUID, raw.UID)
		assert.Contains(t, string(raw.Body), "Subject: Fresh lead")
		assert.Contains(t, string(raw.Body), "Very interested in a demo.")

		// BODY.PEEK must leave the message unseen.
		uids, err := SearchUnseen(c)
		require.NoError(t, err)
		assert.Contains(t, uids, recentUID)
	})
}

func TestKeepalive(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()
	require.NoError(t, Login(c, srv.Username(), srv.Password()))

	assert.NoError(t, Keepalive(c))
}

func TestSafeClientTryLock(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)

	c, err := ConnectToIMAP(srv.Host, srv.Port, false)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()

	sc := NewSafeClient(c)

	sc.Lock()
	assert.False(t, sc.TryLock(), "TryLock must fail while the lock is held")
	sc.Unlock()

	require.True(t, sc.TryLock())
	sc.Unlock()
}
