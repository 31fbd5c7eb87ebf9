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
)

// TestIMAPServer represents a test IMAP server instance.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// TestMessage describes a message to append to the test server.
type TestMessage struct {
	MessageID string
	InReplyTo string
	Subject   string
	From      string
	To        string
	SentAt    time.Time
	Seen      bool
	Flagged   bool
	// Extra header lines, each without the trailing CRLF.
	Headers []string
	// Body replaces the default text body; it must include its own
	// Content-Type header block separator when set.
	Body string
}

// StartIMAPServer starts an IMAP server over the go-imap memory backend on
// a random local port. The backend's only account is "username"/"password",
// and its INBOX already holds one seen message.
func StartIMAPServer() (*TestIMAPServer, error) {
	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		// Serve returns once the server is closed.
		_ = s.Serve(listener)
	}()

	return &TestIMAPServer{
		Server:   s,
		Address:  listener.Addr().String(),
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}, nil
}

// NewTestIMAPServer starts a test IMAP server for the duration of a test.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	s, err := StartIMAPServer()
	if err != nil {
		t.Fatalf("Failed to start test IMAP server: %v", err)
	}
	return s
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Dial opens a logged-in client connection. The caller logs out.
func (s *TestIMAPServer) Dial() (*imapclient.Client, error) {
	client, err := imapclient.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test server: %w", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return client, nil
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := s.Dial()
	if err != nil {
		t.Fatalf("%v", err)
	}

	return client, func() { _ = client.Logout() }
}

// EnsureINBOX ensures the INBOX folder exists for the default user.
func (s *TestIMAPServer) EnsureINBOX(t *testing.T) {
	t.Helper()

	if err := s.CreateFolder("INBOX"); err != nil {
		t.Fatalf("%v", err)
	}
}

// CreateFolder creates a mailbox if it does not exist yet.
func (s *TestIMAPServer) CreateFolder(name string) error {
	client, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout() }()

	if _, err := client.Select(name, false); err == nil {
		return nil
	}
	if err := client.Create(name); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return nil
}

// EnsureFolder creates a mailbox if it does not exist yet.
func (s *TestIMAPServer) EnsureFolder(t *testing.T, name string) {
	t.Helper()

	if err := s.CreateFolder(name); err != nil {
		t.Fatalf("%v", err)
	}
}

// AddMessage appends a seen text message to the folder and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName, messageID, subject, from, to string, sentAt time.Time) uint32 {
	t.Helper()

	return s.Append(t, folderName, TestMessage{
		MessageID: messageID,
		Subject:   subject,
		From:      from,
		To:        to,
		SentAt:    sentAt,
		Seen:      true,
	})
}

// Append adds a message to the folder and returns its UID.
func (s *TestIMAPServer) Append(t *testing.T, folderName string, msg TestMessage) uint32 {
	t.Helper()

	uid, err := s.AppendMessage(folderName, msg)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return uid
}

// AppendMessage adds a message to the folder and returns its UID.
func (s *TestIMAPServer) AppendMessage(folderName string, msg TestMessage) (uint32, error) {
	client, err := s.Dial()
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Logout() }()

	if _, err := client.Select(folderName, false); err != nil {
		return 0, fmt.Errorf("failed to select folder: %w", err)
	}

	var headers strings.Builder
	fmt.Fprintf(&headers, "Message-ID: %s\r\n", msg.MessageID)
	if msg.InReplyTo != "" {
		fmt.Fprintf(&headers, "In-Reply-To: %s\r\nReferences: %s\r\n", msg.InReplyTo, msg.InReplyTo)
	}
	fmt.Fprintf(&headers, "Date: %s\r\nFrom: %s\r\nTo: %s\r\nSubject: %s\r\n",
		msg.SentAt.Format(time.RFC1123Z), msg.From, msg.To, msg.Subject)
	for _, h := range msg.Headers {
		headers.WriteString(h + "\r\n")
	}

	body := msg.Body
	if body == "" {
		body = "Content-Type: text/plain; charset=utf-8\r\n\r\nTest message body.\r\n"
	}

	var flags []string
	if msg.Seen {
		flags = append(flags, imap.SeenFlag)
	}
	if msg.Flagged {
		flags = append(flags, imap.FlaggedFlag)
	}

	if err := client.Append(folderName, flags, msg.SentAt, strings.NewReader(headers.String()+body)); err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	// Search for the message we just added to get its UID
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", msg.MessageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search for message: %w", err)
	}
	if len(uids) == 0 {
		return 0, fmt.Errorf("message %s not found after append", msg.MessageID)
	}

	return uids[0], nil
}
