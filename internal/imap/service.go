package imap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// ErrIMAPNotConfigured is returned when a user has not saved IMAP credentials.
var ErrIMAPNotConfigured = errors.New("IMAP is not configured")

// FetchRequest selects one page of a folder.
type FetchRequest struct {
	Folder models.Folder
	// Page is 1-based. Values below 1 mean the first page.
	Page int
	// Limit <= 0 means the user's page limit.
	Limit int
	// Threaded collapses conversations into their root message.
	Threaded bool
}

// Service turns IMAP mailboxes into fetch events for the mail state.
type Service struct {
	dbPool     *pgxpool.Pool
	clientPool IMAPPool
	encryptor  *crypto.Encryptor
}

// NewService creates a new IMAP service.
func NewService(dbPool *pgxpool.Pool, clientPool IMAPPool, encryptor *crypto.Encryptor) *Service {
	return &Service{
		dbPool:     dbPool,
		clientPool: clientPool,
		encryptor:  encryptor,
	}
}

// getSettingsAndCredentials loads the user's settings and decrypts the IMAP password.
func (s *Service) getSettingsAndCredentials(ctx context.Context, userID string) (*models.UserSettings, Credentials, error) {
	settings, err := db.GetUserSettings(ctx, s.dbPool, userID)
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("failed to get user settings: %w", err)
	}

	creds, err := s.credentials(settings)
	if err != nil {
		return nil, Credentials{}, err
	}
	return settings, creds, nil
}

func (s *Service) credentials(settings *models.UserSettings) (Credentials, error) {
	if !settings.IMAPConfigured() {
		return Credentials{}, ErrIMAPNotConfigured
	}

	password, err := s.encryptor.Decrypt(settings.EncryptedIMAPPassword)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to decrypt IMAP password: %w", err)
	}

	return Credentials{
		Server:   settings.IMAPServerHostname,
		Username: settings.IMAPUsername,
		Password: password,
	}, nil
}

// FetchFolder fetches one page of a folder for the user as a direct Fetch event.
func (s *Service) FetchFolder(ctx context.Context, userID string, req FetchRequest) (mailstate.Fetch, error) {
	settings, err := db.GetUserSettings(ctx, s.dbPool, userID)
	if err != nil {
		return mailstate.Fetch{}, fmt.Errorf("failed to get user settings: %w", err)
	}
	return s.FetchFolderFor(ctx, userID, settings, req)
}

// FetchFolderFor is FetchFolder with the user's settings already loaded.
func (s *Service) FetchFolderFor(ctx context.Context, userID string, settings *models.UserSettings, req FetchRequest) (mailstate.Fetch, error) {
	if err := ctx.Err(); err != nil {
		return mailstate.Fetch{}, err
	}

	creds, err := s.credentials(settings)
	if err != nil {
		return mailstate.Fetch{}, err
	}

	page := max(req.Page, 1)
	limit := req.Limit
	if limit <= 0 {
		limit = settings.EffectivePageLimit()
	}
	mailbox, criteria := mailboxFor(settings, req.Folder)

	fetch := mailstate.Fetch{
		Folder:         req.Folder,
		Limit:          limit,
		IsNotFirstPage: page > 1,
	}

	err = s.clientPool.WithClient(userID, creds, func(c *client.Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return fmt.Errorf("failed to select folder %s: %w", mailbox, err)
		}

		uids, err := searchUIDs(c, criteria)
		if err != nil {
			return err
		}

		if req.Threaded {
			groups, err := threadsFor(c, criteria, uids)
			if err != nil {
				return err
			}
			start, end := pageBounds(len(groups), page, limit)
			messages, err := fetchThreadRows(c, groups[start:end], mailbox, req.Folder)
			if err != nil {
				return err
			}
			fetch.Messages = messages
			fetch.TotalCount = len(groups)
			fetch.Offset = start
			return nil
		}

		start, end := pageBounds(len(uids), page, limit)
		imapMsgs, err := FetchMessages(c, uids[start:end])
		if err != nil {
			return err
		}
		fetch.Messages = parseAll(imapMsgs, mailbox, req.Folder)
		fetch.TotalCount = len(uids)
		fetch.Offset = start
		return nil
	})
	if err != nil {
		return mailstate.Fetch{}, err
	}

	log.Printf("IMAP: fetched %d messages of %s (page %d) for user %s", len(fetch.Messages), req.Folder, page, userID)
	return fetch, nil
}

// fetchThreadRows fetches the root message of each conversation and fills in
// its children bookkeeping from the replies.
func fetchThreadRows(c *client.Client, groups []threadGroup, mailbox string, folder models.Folder) ([]models.Message, error) {
	if len(groups) == 0 {
		return []models.Message{}, nil
	}

	roots := make([]uint32, 0, len(groups))
	var replies []uint32
	for _, g := range groups {
		roots = append(roots, g.root)
		replies = append(replies, g.replies...)
	}

	rootMsgs, err := FetchMessages(c, roots)
	if err != nil {
		return nil, err
	}
	replyMsgs, err := fetchItems(c, replies, []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate})
	if err != nil {
		return nil, err
	}

	byUID := make(map[uint32]*imap.Message, len(rootMsgs)+len(replyMsgs))
	for _, m := range rootMsgs {
		byUID[m.Uid] = m
	}
	for _, m := range replyMsgs {
		byUID[m.Uid] = m
	}

	messages := make([]models.Message, 0, len(groups))
	for _, g := range groups {
		rootMsg, ok := byUID[g.root]
		if !ok {
			log.Printf("IMAP: warning: thread root UID %d missing from fetch", g.root)
			continue
		}
		msg, err := ParseMessage(rootMsg, mailbox, folder)
		if err != nil {
			log.Printf("IMAP: warning: %v", err)
		}

		for _, uid := range g.replies {
			reply, ok := byUID[uid]
			if !ok {
				continue
			}
			if hasFlag(reply, imap.FlaggedFlag) {
				msg.HasStarredChildren = true
			}
			if !hasFlag(reply, imap.SeenFlag) {
				msg.Read = false
			}
			if date := reply.InternalDate.UTC().Truncate(time.Second); date.After(msg.Updated) {
				msg.Updated = date
			}
		}

		if n := len(g.replies); n > 0 {
			msg.HasChildren = true
			msg.ChildrenCount = n
			info := &models.ChildrenFolderInfo{NonTrashChildrenCount: n}
			if folder == models.FolderTrash {
				info = &models.ChildrenFolderInfo{TrashChildrenCount: n}
			}
			msg.ChildrenFolderInfo = info
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// parseAll parses messages, skipping the body of any that fail but keeping their headers.
func parseAll(imapMsgs []*imap.Message, mailbox string, folder models.Folder) []models.Message {
	messages := make([]models.Message, 0, len(imapMsgs))
	for _, imapMsg := range imapMsgs {
		msg, err := ParseMessage(imapMsg, mailbox, folder)
		if err != nil {
			log.Printf("IMAP: warning: %v", err)
		}
		messages = append(messages, msg)
	}
	return messages
}

func hasFlag(msg *imap.Message, flag string) bool {
	for _, f := range msg.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ListFolders lists the user's mailboxes as folders.
func (s *Service) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	settings, creds, err := s.getSettingsAndCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	var folders []models.Folder
	err = s.clientPool.WithClient(userID, creds, func(c *client.Client) error {
		names, err := ListFolders(c)
		if err != nil {
			return err
		}
		for _, name := range names {
			folders = append(folders, FolderForMailbox(settings, name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return folders, nil
}

// Close closes the service and cleans up connections.
func (s *Service) Close() {
	s.clientPool.Close()
}
