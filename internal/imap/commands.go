package imap

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// RawMessage is a message as fetched from the remote mailbox, before
// normalization. Body is the complete RFC 822 source.
type RawMessage struct {
	UID   uint32
	Flags []string
	Body  []byte
}

// OpenFolderReadOnly selects the named folder without write access, so that
// fetching can never mutate remote read/unread flags.
func OpenFolderReadOnly(c *client.Client, name string) (*imap.MailboxStatus, error) {
	mbox, err := c.Select(name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", name, err)
	}
	return mbox, nil
}

// SearchReceivedSince returns the UIDs of all messages received on or after
// the cutoff. IMAP SINCE compares whole dates only, so callers that need
// second precision must re-check the parsed message date themselves.
func SearchReceivedSince(c *client.Client, cutoff time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = cutoff

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search since %s: %w", cutoff.Format(time.RFC3339), err)
	}

	return uids, nil
}

// SearchUnseen returns the UIDs of all messages without the \Seen flag.
func SearchUnseen(c *client.Client) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen: %w", err)
	}

	return uids, nil
}

// FetchRaw fetches the complete raw source of one message by UID, using
// BODY.PEEK so the fetch does not set \Seen as a side effect.
func FetchRaw(c *client.Client, uid uint32) (*RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		section.FetchItem(),
		imap.FetchFlags,
		imap.FetchUid,
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	msg := <-messages

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("server did not return message %d", uid)
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return nil, fmt.Errorf("server did not return body for message %d", uid)
	}

	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body for message %d: %w", uid, err)
	}

	return &RawMessage{
		UID:   msg.Uid,
		Flags: msg.Flags,
		Body:  body,
	}, nil
}

// Keepalive issues a NOOP to keep the connection from being dropped by the
// server's inactivity timeout.
func Keepalive(c *client.Client) error {
	if err := c.Noop(); err != nil {
		return fmt.Errorf("keepalive failed: %w", err)
	}
	return nil
}
