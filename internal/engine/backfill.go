package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/imap"
)

// backfill ingests the watched folder's recent history, reaching back
// BackfillWindow from the moment the session activated. The folder is opened
// read-only so scanning can never flip remote read/unread flags. A message
// received exactly at the cutoff is included; one received a second earlier
// is not.
func (s *Session) backfill(ctx context.Context) error {
	start := time.Now().UTC()
	cutoff := start.Add(-s.opts.BackfillWindow)

	s.conn.Lock()
	c := s.conn.Client()
	_, err := imap.OpenFolderReadOnly(c, s.opts.WatchedFolder)
	if err != nil {
		s.conn.Unlock()
		return err
	}
	uids, err := imap.SearchReceivedSince(c, cutoff)
	s.conn.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("backfill started",
		zap.Time("cutoff", cutoff),
		zap.Int("candidates", len(uids)),
	)

	ingested := 0
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.processUID(ctx, uid, cutoff)
		if err != nil {
			return err
		}
		if ok {
			ingested++
		}
	}

	if err := s.store.UpdateLastSyncedAt(ctx, s.account.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last synced timestamp", zap.Error(err))
	}

	s.logger.Info("backfill complete", zap.Int("ingested", ingested))
	return nil
}
