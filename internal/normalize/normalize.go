// Package normalize turns raw RFC 822 message sources into canonical Message
// records. Normalization is a pure transform: malformed or partial input
// yields explicit defaults, and only an unparseable source is rejected.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/leadbox/leadbox/internal/imap"
	"github.com/leadbox/leadbox/internal/models"
)

// ErrParse is returned when the raw message source cannot be parsed at all.
// Callers skip the single message and keep scanning.
var ErrParse = errors.New("failed to parse message")

// MissingSubjectPlaceholder is stored when the source has no Subject header.
const MissingSubjectPlaceholder = "(No Subject)"

// Normalize converts a fetched raw message into the canonical record for the
// given account and folder. now is the ingestion timestamp; it doubles as the
// received time when the Date header is missing or invalid.
func Normalize(raw *imap.RawMessage, accountID, folder string, now time.Time) (*models.Message, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: raw message is nil", ErrParse)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	msg := &models.Message{
		AccountID:  accountID,
		UID:        int64(raw.UID),
		Folder:     folder,
		Subject:    MissingSubjectPlaceholder,
		BodyText:   envelope.Text,
		BodyHTML:   envelope.HTML,
		ReceivedAt: now,
		IsRead:     isSeen(raw.Flags),
		IngestedAt: now,
	}

	if subject := envelope.GetHeader("Subject"); subject != "" {
		msg.Subject = subject
	}

	if from, err := envelope.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromAddress = from[0].Address
		msg.FromName = from[0].Name
	}

	if to, err := envelope.AddressList("To"); err == nil {
		msg.ToAddresses = formatAddressList(to)
	}
	if cc, err := envelope.AddressList("Cc"); err == nil {
		msg.CCAddresses = formatAddressList(cc)
	}

	if date := envelope.GetHeader("Date"); date != "" {
		if parsed, err := mail.ParseDate(date); err == nil {
			msg.ReceivedAt = parsed
		}
	}

	msg.MessageID = envelope.GetHeader("Message-Id")
	if msg.MessageID == "" {
		// No Message-Id header: derive an identifier that cannot collide
		// across accounts, UIDs, or ingestion times.
		msg.MessageID = fmt.Sprintf("%s-%d-%d", accountID, raw.UID, now.UnixMilli())
	}

	return msg, nil
}

func isSeen(flags []string) bool {
	for _, flag := range flags {
		if flag == goimap.SeenFlag {
			return true
		}
	}
	return false
}

func formatAddressList(addresses []*mail.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address.Address == "" {
			continue
		}
		if address.Name != "" {
			result = append(result, fmt.Sprintf("%s <%s>", address.Name, address.Address))
		} else {
			result = append(result, address.Address)
		}
	}
	return result
}
