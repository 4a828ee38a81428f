package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/crypto"
	"github.com/leadbox/leadbox/internal/metrics"
	"github.com/leadbox/leadbox/internal/models"
)

// Manager owns the registry of live sessions, at most one per account. The
// registry map is the only state shared across sessions.
type Manager struct {
	opts      Options
	store     AccountStore
	decryptor *crypto.Encryptor
	processor Processor
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager with an empty registry.
func NewManager(opts Options, store AccountStore, decryptor *crypto.Encryptor, processor Processor, logger *zap.Logger) *Manager {
	return &Manager{
		opts:      opts,
		store:     store,
		decryptor: decryptor,
		processor: processor,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Start launches a sync session for the account. Starting an account that
// already has a live session is a no-op. The session lives until ctx is
// canceled, Stop is called, or it fails.
func (m *Manager) Start(ctx context.Context, account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[account.ID]; ok {
		m.logger.Debug("session already running", zap.String("account_id", account.ID))
		return
	}

	sess := newSession(account, m.opts, m.decryptor, m.store, m.processor, m.logger)
	sessCtx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel
	m.sessions[account.ID] = sess
	metrics.ActiveSessions.Inc()

	m.logger.Info("starting session",
		zap.String("account_id", account.ID),
		zap.String("email", account.Email),
	)

	go sess.run(sessCtx, m.remove)
}

// remove drops a finished session from the registry. The identity check
// protects a newer session started for the same account after this one
// already began tearing down.
func (m *Manager) remove(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.sessions[sess.account.ID]; ok && current == sess {
		delete(m.sessions, sess.account.ID)
		metrics.ActiveSessions.Dec()
	}
}

// Stop cancels the account's session and waits for it to tear down.
// Stopping an account with no live session is a no-op.
func (m *Manager) Stop(accountID string) {
	m.mu.Lock()
	sess, ok := m.sessions[accountID]
	m.mu.Unlock()
	if !ok {
		return
	}

	sess.cancel()
	<-sess.done
}

// StartAll starts a session for every sync-enabled account. A session that
// fails to connect errors out on its own without affecting the others; only
// a failure to list the accounts is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	accounts, err := m.store.ListSyncEnabledAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, account := range accounts {
		m.Start(ctx, account)
	}

	m.logger.Info("started all sessions", zap.Int("accounts", len(accounts)))
	return nil
}

// StopAll stops every live session and waits for each to tear down.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
		<-sess.done
	}
}

// SessionInfo is a point-in-time snapshot of one live session.
type SessionInfo struct {
	SessionID string
	AccountID string
	Email     string
	State     State
}

// List snapshots the live sessions.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, SessionInfo{
			SessionID: sess.ID,
			AccountID: sess.account.ID,
			Email:     sess.account.Email,
			State:     sess.State(),
		})
	}
	return infos
}
