package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/crypto"
	"github.com/leadbox/leadbox/internal/imap"
	"github.com/leadbox/leadbox/internal/metrics"
	"github.com/leadbox/leadbox/internal/models"
	"github.com/leadbox/leadbox/internal/normalize"
)

// Session syncs one account over one IMAP connection. It owns its goroutine:
// the Manager starts it, and it removes itself from the registry when its
// goroutine exits, whether by stop request or by failure.
type Session struct {
	ID      string
	account *models.Account

	opts      Options
	decryptor *crypto.Encryptor
	store     AccountStore
	processor Processor
	logger    *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State

	conn *imap.SafeClient
}

func newSession(account *models.Account, opts Options, decryptor *crypto.Encryptor, store AccountStore, processor Processor, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		ID:        id,
		account:   account,
		opts:      opts,
		decryptor: decryptor,
		store:     store,
		processor: processor,
		logger: logger.With(
			zap.String("session_id", id),
			zap.String("account_id", account.ID),
			zap.String("email", account.Email),
		),
		done:  make(chan struct{}),
		state: StateDisconnected,
	}
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ValidTransition(s.state, to) {
		s.logger.Warn("invalid state transition",
			zap.Stringer("from", s.state),
			zap.Stringer("to", to),
		)
		return
	}
	s.state = to
}

// run is the session goroutine. onExit fires after the connection is torn
// down, before done is closed.
func (s *Session) run(ctx context.Context, onExit func(*Session)) {
	defer close(s.done)
	defer onExit(s)

	err := s.sync(ctx)
	s.closeConn()

	if err == nil || errors.Is(err, context.Canceled) {
		s.transition(StateStopping)
		s.transition(StateDisconnected)
		s.logger.Info("session stopped")
		return
	}

	metrics.SessionErrors.Inc()
	s.logger.Error("session failed", zap.Error(err))
	s.transition(StateErrored)
}

func (s *Session) sync(ctx context.Context) error {
	s.transition(StateConnecting)

	password, err := s.decryptor.Decrypt(s.account.EncryptedIMAPPassword)
	if err != nil {
		return fmt.Errorf("failed to decrypt password: %w", err)
	}

	c, err := imap.ConnectToIMAP(s.account.IMAPHost, s.account.IMAPPort, s.opts.UseTLS)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	s.conn = imap.NewSafeClient(c)

	if err := imap.Login(c, s.account.IMAPUsername, password); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.transition(StateBackfilling)
	if err := s.backfill(ctx); err != nil {
		return err
	}

	s.transition(StateListening)
	return s.listen(ctx)
}

func (s *Session) closeConn() {
	if s.conn == nil {
		return
	}
	s.conn.Lock()
	defer s.conn.Unlock()
	if err := s.conn.Client().Logout(); err != nil {
		s.logger.Debug("logout failed", zap.Error(err))
	}
}

// processUID fetches, normalizes, and pipelines one message. A transport
// failure is returned and ends the session; a parse or pipeline failure is
// absorbed so one bad message cannot stall the account. A non-zero cutoff
// drops messages received before it, which compensates for the day
// granularity of the IMAP SINCE search.
func (s *Session) processUID(ctx context.Context, uid uint32, cutoff time.Time) (bool, error) {
	s.conn.Lock()
	raw, err := imap.FetchRaw(s.conn.Client(), uid)
	s.conn.Unlock()
	if err != nil {
		return false, err
	}

	msg, err := normalize.Normalize(raw, s.account.ID, s.opts.WatchedFolder, time.Now().UTC())
	if err != nil {
		metrics.ParseFailures.Inc()
		s.logger.Warn("skipping unparseable message",
			zap.Uint32("uid", uid),
			zap.Error(err),
		)
		return false, nil
	}

	if !cutoff.IsZero() && msg.ReceivedAt.Before(cutoff) {
		return false, nil
	}

	if err := s.processor.Process(ctx, msg); err != nil {
		s.logger.Warn("failed to process message",
			zap.Uint32("uid", uid),
			zap.Error(err),
		)
		return false, nil
	}

	return true, nil
}
