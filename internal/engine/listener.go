package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	idle "github.com/emersion/go-imap-idle"
	"github.com/emersion/go-imap/client"

	"github.com/leadbox/leadbox/internal/imap"
)

// listen waits for new mail until the context is canceled. Each cycle runs an
// unseen scan and then an IDLE wait under the connection lock; push updates,
// the idle timeout, and the defensive poll ticker all end the wait and loop
// back into the scan. The keepalive ticker only fires when the connection is
// free: while IDLE holds the lock the connection is active and a NOOP would
// be both illegal mid-IDLE and pointless.
func (s *Session) listen(ctx context.Context) error {
	s.conn.Lock()
	c := s.conn.Client()
	updates := make(chan client.Update, 64)
	c.Updates = updates
	idler := idle.NewClient(c)
	s.conn.Unlock()

	keepalive := time.NewTicker(s.opts.KeepaliveInterval)
	defer keepalive.Stop()
	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()

	for {
		// Catch anything that arrived while IDLE was not running.
		if err := s.scanUnseen(ctx); err != nil {
			return err
		}

		stop := make(chan struct{})
		idleDone := make(chan error, 1)
		go func() {
			s.conn.Lock()
			defer s.conn.Unlock()
			idleDone <- idler.IdleWithFallback(stop, 0)
		}()

		var stopOnce sync.Once
		stopIdle := func() { stopOnce.Do(func() { close(stop) }) }

		restart := time.NewTimer(s.opts.IdleTimeout)

	wait:
		for {
			select {
			case <-ctx.Done():
				stopIdle()
				<-idleDone
				restart.Stop()
				return ctx.Err()
			case err := <-idleDone:
				restart.Stop()
				if err != nil {
					return fmt.Errorf("idle failed: %w", err)
				}
				break wait
			case <-updates:
				stopIdle()
			case <-restart.C:
				stopIdle()
			case <-poll.C:
				stopIdle()
			case <-keepalive.C:
				if !s.conn.TryLock() {
					continue
				}
				err := imap.Keepalive(s.conn.Client())
				s.conn.Unlock()
				if err != nil {
					stopIdle()
					<-idleDone
					restart.Stop()
					return err
				}
			}
		}

		// Updates queued while IDLE was winding down are stale once the next
		// scan runs; drop them so they cannot wake the next cycle instantly.
	drain:
		for {
			select {
			case <-updates:
			default:
				break drain
			}
		}
	}
}

// scanUnseen ingests every message in the watched folder that the remote
// still marks unseen. The dedup gate downstream makes rescanning the same
// messages harmless.
func (s *Session) scanUnseen(ctx context.Context) error {
	s.conn.Lock()
	uids, err := imap.SearchUnseen(s.conn.Client())
	s.conn.Unlock()
	if err != nil {
		return err
	}

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.processUID(ctx, uid, time.Time{}); err != nil {
			return err
		}
	}

	return nil
}
