package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/vdavid/mailview/internal/models"
)

// inboxMailbox is the IMAP name of the inbox on every server.
const inboxMailbox = "INBOX"

// ListFolders lists all folders on the IMAP server.
func ListFolders(c *client.Client) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// mailboxFor maps a folder to the IMAP mailbox holding it and the search
// criteria that select its messages. The virtual folders are searches over INBOX.
func mailboxFor(settings *models.UserSettings, folder models.Folder) (string, *imap.SearchCriteria) {
	criteria := imap.NewSearchCriteria()

	switch folder {
	case models.FolderInbox, models.FolderAllEmails:
		return inboxMailbox, criteria
	case models.FolderUnread:
		criteria.WithoutFlags = []string{imap.SeenFlag}
		return inboxMailbox, criteria
	case models.FolderStarred:
		criteria.WithFlags = []string{imap.FlaggedFlag}
		return inboxMailbox, criteria
	case models.FolderSent:
		return orDefault(settings.SentFolderName, "Sent"), criteria
	case models.FolderDraft:
		return orDefault(settings.DraftsFolderName, "Drafts"), criteria
	case models.FolderTrash:
		return orDefault(settings.TrashFolderName, "Trash"), criteria
	case models.FolderSpam:
		return orDefault(settings.SpamFolderName, "Spam"), criteria
	}

	return string(folder), criteria
}

// FolderForMailbox is the inverse of the folder mapping for concrete mailboxes.
// Mailboxes with no well-known role become custom folders named after the mailbox.
func FolderForMailbox(settings *models.UserSettings, mailbox string) models.Folder {
	switch {
	case strings.EqualFold(mailbox, inboxMailbox):
		return models.FolderInbox
	case mailbox == orDefault(settings.SentFolderName, "Sent"):
		return models.FolderSent
	case mailbox == orDefault(settings.DraftsFolderName, "Drafts"):
		return models.FolderDraft
	case mailbox == orDefault(settings.TrashFolderName, "Trash"):
		return models.FolderTrash
	case mailbox == orDefault(settings.SpamFolderName, "Spam"):
		return models.FolderSpam
	}
	return models.Folder(mailbox)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
