package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	idle "github.com/emersion/go-imap-idle"
)

// TestIMAPServer is an in-process IMAP server over the go-imap memory
// backend. The backend ships with one user ("username"/"password") whose
// INBOX already holds a sample message dated in 2016.
type TestIMAPServer struct {
	Server  *server.Server
	Host    string
	Port    int
	Backend *memory.Backend

	username string
	password string
}

// NewTestIMAPServer starts an IMAP server on a random localhost port. It is
// shut down when the test finishes.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true
	s.Enable(idle.NewExtension())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give the accept loop a moment to come up.
	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		_ = s.Close()
	})

	addr := listener.Addr().(*net.TCPAddr)

	return &TestIMAPServer{
		Server:   s,
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Backend:  be,
		username: "username",
		password: "password",
	}
}

// Address returns the host:port the server listens on.
func (s *TestIMAPServer) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Username returns the memory backend's default username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the memory backend's default password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Connect returns a logged-in client connection. It is logged out when the
// test finishes.
func (s *TestIMAPServer) Connect(t *testing.T) *imapclient.Client {
	t.Helper()

	c, err := imapclient.Dial(s.Address())
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Logout()
	})

	return c
}

// TestMessage describes one message to append to the test server.
type TestMessage struct {
	MessageID string
	Subject   string
	From      string
	To        string
	Body      string
	Date      time.Time
	Seen      bool
}

// AddMessage appends the message to the folder and returns its UID. The
// given date is used both as the RFC 822 Date header and as the IMAP
// internal date, so date-based searches see it too.
func (s *TestIMAPServer) AddMessage(t *testing.T, folder string, msg TestMessage) uint32 {
	t.Helper()

	c := s.Connect(t)

	if _, err := c.Select(folder, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	body := msg.Body
	if body == "" {
		body = "Test message body."
	}

	source := fmt.Sprintf(`Message-ID: %s
Date: %s
From: %s
To: %s
Subject: %s
Content-Type: text/plain; charset=utf-8

%s
`, msg.MessageID, msg.Date.Format(time.RFC1123Z), msg.From, msg.To, msg.Subject, body)

	var flags []string
	if msg.Seen {
		flags = append(flags, imap.SeenFlag)
	}

	if err := c.Append(folder, flags, msg.Date, strings.NewReader(source)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", msg.MessageID)
	uids, err := c.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[0]
}
