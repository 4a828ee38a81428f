package imap

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
)

// SafeClient wraps an IMAP client with a mutex. Within one session the IDLE
// wait, the keepalive ticker, and the unseen scan all share a single
// connection, and IMAP does not tolerate interleaved commands, so every
// command must run under the lock.
type SafeClient struct {
	client *client.Client
	mu     sync.Mutex
}

// NewSafeClient wraps the given IMAP client.
func NewSafeClient(c *client.Client) *SafeClient {
	return &SafeClient{client: c}
}

// Lock acquires the mutex for exclusive access to the underlying client.
func (c *SafeClient) Lock() {
	c.mu.Lock()
}

// TryLock acquires the mutex if it is free, without blocking.
func (c *SafeClient) TryLock() bool {
	return c.mu.TryLock()
}

// Unlock releases the mutex.
func (c *SafeClient) Unlock() {
	c.mu.Unlock()
}

// Client returns the underlying IMAP client.
// Caller must hold the lock before calling this.
func (c *SafeClient) Client() *client.Client {
	return c.client
}

// ConnectToIMAP connects to the IMAP server with a 5-second dial timeout.
// useTLS: true for production (TLS), false for tests (non-TLS).
func ConnectToIMAP(host string, port int, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, address, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	// Non-TLS connection for testing
	c, err := client.DialWithDialer(dialer, address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return c, nil
}

// Login authenticates with the IMAP server.
func Login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return nil
}
