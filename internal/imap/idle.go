package imap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/emersion/go-imap"
	idle "github.com/emersion/go-imap-idle"
	"github.com/emersion/go-imap/client"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// idleListenerSleep is the backoff duration after an error before retrying IDLE.
const idleListenerSleep = 10 * time.Second

// ConnectionCounter reports how many live clients a user has.
type ConnectionCounter interface {
	ActiveConnections(userID string) int
}

// EventSink receives the push events produced by the IDLE listener.
type EventSink interface {
	Apply(ctx context.Context, ev mailstate.Event) error
	ConversationViewMode() bool
}

// StartIdleListener runs an IMAP IDLE loop for a user and applies new INBOX
// messages to sink as push fetches.
// This function blocks until the context is canceled.
func (s *Service) StartIdleListener(ctx context.Context, userID string, counter ConnectionCounter, sink EventSink) {
	for ctx.Err() == nil {
		// If the user has no active WebSocket connections, avoid doing work.
		if counter != nil && counter.ActiveConnections(userID) == 0 {
			sleepCtx(ctx, idleListenerSleep)
			continue
		}

		settings, creds, err := s.getSettingsAndCredentials(ctx, userID)
		if err != nil {
			log.Printf("IMAP IDLE: failed to get settings for user %s: %v", userID, err)
			sleepCtx(ctx, idleListenerSleep)
			continue
		}

		listener, err := s.clientPool.GetListenerConnection(userID, creds)
		if err != nil {
			log.Printf("IMAP IDLE: failed to get listener connection for user %s: %v", userID, err)
			sleepCtx(ctx, idleListenerSleep)
			continue
		}

		func() {
			defer listener.Unlock()
			s.runIdleLoop(ctx, userID, settings, listener.GetClient(), sink)
		}()

		sleepCtx(ctx, idleListenerSleep)
	}
}

// runIdleLoop runs the IDLE command and handles mailbox updates.
func (s *Service) runIdleLoop(ctx context.Context, userID string, settings *models.UserSettings, c *client.Client, sink EventSink) {
	mbox, err := c.Select(inboxMailbox, true)
	if err != nil {
		log.Printf("IMAP IDLE: failed to select INBOX for user %s: %v", userID, err)
		s.clientPool.RemoveListenerConnection(userID)
		return
	}

	lastUID := uint32(0)
	if mbox.UidNext > 0 {
		lastUID = mbox.UidNext - 1
	}
	known := mbox.Messages

	updates := make(chan client.Update, 10)
	c.Updates = updates
	defer func() { c.Updates = nil }()

	queue := newPushQueue(lastUID, func(from uint32) (uint32, error) {
		return s.PushNewMessages(ctx, userID, settings, from, sink)
	})
	defer queue.wait()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idle.NewClient(c).IdleWithFallback(stop, 5*time.Second)
	}()

	// The loop must keep reading updates: the client blocks its reader on a
	// full Updates channel, which would stall IDLE.
	for {
		select {
		case <-ctx.Done():
			close(stop)
			waitIdle(done, updates)
			return
		case err := <-done:
			if err != nil {
				log.Printf("IMAP IDLE: idle loop ended with error for user %s: %v", userID, err)
				s.clientPool.RemoveListenerConnection(userID)
			}
			return
		case result := <-queue.done:
			if err := queue.finish(result); err != nil {
				log.Printf("IMAP IDLE: failed to push new messages for user %s: %v", userID, err)
			}
		case update := <-updates:
			switch u := update.(type) {
			case *client.MailboxUpdate:
				if u.Mailbox == nil || u.Mailbox.Messages <= known {
					continue
				}
				known = u.Mailbox.Messages
				queue.signal()
			case *client.ExpungeUpdate:
				if known > 0 {
					known--
				}
			}
		}
	}
}

// waitIdle waits for the IDLE command to end, discarding updates meanwhile.
func waitIdle(done <-chan error, updates <-chan client.Update) error {
	for {
		select {
		case err := <-done:
			return err
		case <-updates:
		}
	}
}

type pushResult struct {
	lastUID uint32
	err     error
}

// pushQueue runs at most one push at a time off the IDLE loop. Signals that
// arrive while a push runs collapse into a single follow-up push. It is owned
// by one goroutine: only push runs elsewhere.
type pushQueue struct {
	push    func(lastUID uint32) (uint32, error)
	lastUID uint32
	running bool
	pending bool
	done    chan pushResult
}

func newPushQueue(lastUID uint32, push func(lastUID uint32) (uint32, error)) *pushQueue {
	return &pushQueue{push: push, lastUID: lastUID, done: make(chan pushResult, 1)}
}

// signal asks for a push of everything after lastUID.
func (q *pushQueue) signal() {
	if q.running {
		q.pending = true
		return
	}
	q.start()
}

func (q *pushQueue) start() {
	q.running = true
	from := q.lastUID
	go func() {
		next, err := q.push(from)
		q.done <- pushResult{lastUID: next, err: err}
	}()
}

// finish records a result received from done and starts the follow-up push
// if one was asked for. A failed push leaves lastUID as it was.
func (q *pushQueue) finish(r pushResult) error {
	q.running = false
	if r.err == nil {
		q.lastUID = r.lastUID
	}
	if q.pending {
		q.pending = false
		q.start()
	}
	return r.err
}

// wait blocks until the running push, if any, returns. A pending follow-up
// is dropped.
func (q *pushQueue) wait() {
	q.pending = false
	if q.running {
		<-q.done
		q.running = false
	}
}

// PushNewMessages fetches the INBOX messages with a UID above lastUID on a
// worker connection and applies them to sink as one push fetch. It returns
// the highest UID seen.
func (s *Service) PushNewMessages(ctx context.Context, userID string, settings *models.UserSettings, lastUID uint32, sink EventSink) (uint32, error) {
	creds, err := s.credentials(settings)
	if err != nil {
		return lastUID, err
	}

	threaded := sink.ConversationViewMode()
	var messages []models.Message
	highest := lastUID

	err = s.clientPool.WithClient(userID, creds, func(c *client.Client) error {
		if _, err := c.Select(inboxMailbox, true); err != nil {
			return fmt.Errorf("failed to select INBOX: %w", err)
		}

		uids, err := uidsAfter(c, lastUID)
		if err != nil || len(uids) == 0 {
			return err
		}
		highest = uids[0]

		imapMsgs, err := FetchMessages(c, uids)
		if err != nil {
			return err
		}
		messages = parseAll(imapMsgs, inboxMailbox, models.FolderInbox)

		if threaded {
			parents, err := threadParents(c, uids)
			if err != nil {
				return err
			}
			for i := range messages {
				if parent, ok := parents[imapMsgs[i].Uid]; ok && parent != messages[i].ID {
					messages[i].Parent = parent
				}
			}
		}
		return nil
	})
	if err != nil {
		return lastUID, err
	}
	if len(messages) == 0 {
		return highest, nil
	}

	log.Printf("IMAP IDLE: %d new messages in INBOX for user %s", len(messages), userID)
	push := mailstate.Fetch{Folder: models.FolderInbox, Messages: messages, FromSocket: true}
	if err := sink.Apply(ctx, push); err != nil {
		return highest, fmt.Errorf("failed to apply push: %w", err)
	}
	return highest, nil
}

// threadParents maps each of uids to the stable id of its conversation root in
// the selected mailbox.
func threadParents(c *client.Client, uids []uint32) (map[uint32]models.MessageID, error) {
	criteria := imap.NewSearchCriteria()
	all, err := searchUIDs(c, criteria)
	if err != nil {
		return nil, err
	}
	groups, err := threadsFor(c, criteria, all)
	if err != nil {
		return nil, err
	}

	wanted := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		wanted[uid] = true
	}

	rootOf := make(map[uint32]uint32)
	var roots []uint32
	for _, g := range groups {
		for _, uid := range g.replies {
			if wanted[uid] {
				if _, seen := rootOf[uid]; !seen {
					rootOf[uid] = g.root
				}
				roots = append(roots, g.root)
			}
		}
	}
	if len(roots) == 0 {
		return map[uint32]models.MessageID{}, nil
	}

	envelopes, err := fetchEnvelopes(c, roots)
	if err != nil {
		return nil, err
	}
	rootIDs := make(map[uint32]models.MessageID, len(envelopes))
	for _, env := range envelopes {
		rootIDs[env.Uid] = messageIDOf(env, inboxMailbox)
	}

	parents := make(map[uint32]models.MessageID, len(rootOf))
	for uid, root := range rootOf {
		if id, ok := rootIDs[root]; ok {
			parents[uid] = id
		}
	}
	return parents, nil
}

// sleepCtx sleeps for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
