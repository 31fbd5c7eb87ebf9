package imap

import "github.com/emersion/go-imap/client"

// Credentials identify one IMAP account.
type Credentials struct {
	Server   string
	Username string
	Password string
}

// IMAPPool defines the connection pool the service runs its commands on.
// Note: The stutter in the naming is intentional because we have a struct called Pool.
//
//goland:noinspection GoNameStartsWithPackageName
type IMAPPool interface {
	// WithClient runs fn on a worker connection for the user. The connection
	// is exclusively fn's until it returns.
	WithClient(userID string, creds Credentials, fn func(c *client.Client) error) error

	// GetListenerConnection returns the user's dedicated IDLE connection, locked.
	GetListenerConnection(userID string, creds Credentials) (ListenerClient, error)

	// RemoveListenerConnection closes the user's IDLE connection.
	RemoveListenerConnection(userID string)

	// RemoveClient closes every connection of the user.
	RemoveClient(userID string)

	// Close closes all connections in the pool.
	Close()
}

// ListenerClient is a locked connection reserved for IDLE.
type ListenerClient interface {
	// Unlock releases the connection.
	Unlock()
	// GetClient returns the underlying IMAP client.
	// Caller must hold the lock before calling this.
	GetClient() *client.Client
}

// Ensure Pool implements IMAPPool interface
var _ IMAPPool = (*Pool)(nil)

// Ensure threadSafeClient implements ListenerClient interface
var _ ListenerClient = (*threadSafeClient)(nil)
