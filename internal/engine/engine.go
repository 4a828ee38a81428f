// Package engine runs the per-account sync sessions: one goroutine per
// mailbox that backfills recent history and then listens for new mail,
// feeding every message into the ingestion pipeline.
package engine

import (
	"context"
	"time"

	"github.com/leadbox/leadbox/internal/models"
)

// Options are the tunables shared by every session.
type Options struct {
	// WatchedFolder is the mailbox folder to sync, normally INBOX.
	WatchedFolder string
	// BackfillWindow is how far back the initial scan reaches.
	BackfillWindow time.Duration
	// IdleTimeout bounds a single IDLE wait before it is restarted.
	IdleTimeout time.Duration
	// KeepaliveInterval is how often a NOOP is sent when the connection
	// is otherwise quiet.
	KeepaliveInterval time.Duration
	// PollInterval is how often the listener scans for unseen mail even
	// without a push update.
	PollInterval time.Duration
	// UseTLS selects implicit TLS for the IMAP connection. Disabled only
	// against local test servers.
	UseTLS bool
}

// Processor ingests one normalized message. Implemented by pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, msg *models.Message) error
}

// AccountStore is the slice of durable storage the engine needs.
type AccountStore interface {
	ListSyncEnabledAccounts(ctx context.Context) ([]*models.Account, error)
	UpdateLastSyncedAt(ctx context.Context, accountID string, syncedAt time.Time) error
}
