package imap

import (
	"context"

	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// IMAPService defines the interface for IMAP operations.
// This interface allows handlers to be tested with mock implementations.
// Note: The stutter in the naming is intentional because we have a struct called Service.
//
//goland:noinspection GoNameStartsWithPackageName
type IMAPService interface {
	// FetchFolder fetches one page of a folder as a direct Fetch event.
	FetchFolder(ctx context.Context, userID string, req FetchRequest) (mailstate.Fetch, error)

	// ListFolders lists the user's mailboxes as folders.
	ListFolders(ctx context.Context, userID string) ([]models.Folder, error)

	// StartIdleListener runs an IMAP IDLE loop on INBOX for a user and applies
	// new messages to sink as push events. It blocks until ctx is canceled.
	StartIdleListener(ctx context.Context, userID string, counter ConnectionCounter, sink EventSink)

	// Close closes the service and cleans up connections.
	Close()
}

// Ensure Service implements IMAPService interface
var _ IMAPService = (*Service)(nil)
