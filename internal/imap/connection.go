package imap

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// threadSafeClient wraps an IMAP connection with a mutex. Different
// connections are used concurrently; one connection serves one caller at a time.
type threadSafeClient struct {
	client   *client.Client
	mu       sync.Mutex
	lastUsed time.Time
}

// Lock acquires the mutex for thread-safe access to the underlying client.
func (c *threadSafeClient) Lock() {
	c.mu.Lock()
}

// TryLock acquires the mutex only if it is free.
func (c *threadSafeClient) TryLock() bool {
	return c.mu.TryLock()
}

// Unlock releases the mutex.
func (c *threadSafeClient) Unlock() {
	c.mu.Unlock()
}

// GetClient returns the underlying IMAP client.
// Caller must hold the lock before calling this.
func (c *threadSafeClient) GetClient() *client.Client {
	return c.client
}

// loggedIn reports whether the connection is still authenticated.
func (c *threadSafeClient) loggedIn() bool {
	state := c.client.State()
	return state == imap.AuthenticatedState || state == imap.SelectedState
}

func (c *threadSafeClient) logout() {
	_ = c.client.Logout()
}

// ConnectToIMAP connects to the IMAP server with a 5-second timeout.
// useTLS is false only for local test servers.
func ConnectToIMAP(server string, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, server, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	c, err := client.DialWithDialer(dialer, server)
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

// dial opens and authenticates a new connection.
func dial(creds Credentials, useTLS bool) (*threadSafeClient, error) {
	c, err := ConnectToIMAP(creds.Server, useTLS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := Login(c, creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return &threadSafeClient{client: c, lastUsed: time.Now()}, nil
}
