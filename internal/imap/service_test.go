package imap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
	"github.com/vdavid/mailview/internal/testutil"
)

// The memory backend's INBOX starts with one seen message.
const preloadedInboxMessages = 1

type serviceFixture struct {
	server   *testutil.TestIMAPServer
	service  *Service
	settings *models.UserSettings
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)
	server.EnsureINBOX(t)

	encryptor := testutil.GetTestEncryptor(t)
	encrypted, err := encryptor.Encrypt(server.Password())
	require.NoError(t, err)

	service := NewService(nil, NewPool(false), encryptor)
	t.Cleanup(service.Close)

	return &serviceFixture{
		server:  server,
		service: service,
		settings: &models.UserSettings{
			UserID:                "user-1",
			PageLimit:             20,
			IMAPServerHostname:    server.Address,
			IMAPUsername:          server.Username(),
			EncryptedIMAPPassword: encrypted,
		},
	}
}

func (f *serviceFixture) add(t *testing.T, messageID, subject string, minute int, seen bool, inReplyTo string) uint32 {
	t.Helper()
	return f.server.Append(t, "INBOX", testutil.TestMessage{
		MessageID: messageID,
		InReplyTo: inReplyTo,
		Subject:   subject,
		From:      "alice@example.com",
		To:        "bob@example.com",
		SentAt:    time.Date(2025, 1, 1, 12, minute, 0, 0, time.UTC),
		Seen:      seen,
	})
}

type recordingSink struct {
	mu       sync.Mutex
	threaded bool
	events   []mailstate.Event
}

func (s *recordingSink) Apply(_ context.Context, ev mailstate.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) ConversationViewMode() bool { return s.threaded }

func TestFetchFolderFlat(t *testing.T) {
	f := newServiceFixture(t)
	f.add(t, "<one@test>", "One", 1, true, "")
	f.add(t, "<two@test>", "Two", 2, false, "")
	f.add(t, "<three@test>", "Three", 3, true, "")

	ctx := context.Background()

	t.Run("first page holds the newest messages", func(t *testing.T) {
		fetch, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: models.FolderInbox, Page: 1, Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, models.FolderInbox, fetch.Folder)
		assert.Equal(t, 3+preloadedInboxMessages, fetch.TotalCount)
		assert.Equal(t, 2, fetch.Limit)
		assert.False(t, fetch.IsNotFirstPage)
		assert.False(t, fetch.FromSocket)
		require.Len(t, fetch.Messages, 2)
		assert.Equal(t, "Three", fetch.Messages[0].Subject)
		assert.Equal(t, "Two", fetch.Messages[1].Subject)
		assert.Equal(t, MessageIDFromHeader("<three@test>"), fetch.Messages[0].ID)
		assert.False(t, fetch.Messages[1].Read)
	})

	t.Run("second page", func(t *testing.T) {
		fetch, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: models.FolderInbox, Page: 2, Limit: 2})
		require.NoError(t, err)

		assert.True(t, fetch.IsNotFirstPage)
		assert.Equal(t, 2, fetch.Offset)
		require.Len(t, fetch.Messages, 2)
		assert.Equal(t, "One", fetch.Messages[0].Subject)
	})

	t.Run("limit defaults to the page limit", func(t *testing.T) {
		fetch, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: models.FolderInbox})
		require.NoError(t, err)
		assert.Equal(t, 20, fetch.Limit)
		assert.Len(t, fetch.Messages, 3+preloadedInboxMessages)
	})

	t.Run("unread is a search over INBOX", func(t *testing.T) {
		fetch, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: models.FolderUnread})
		require.NoError(t, err)
		assert.Equal(t, models.FolderUnread, fetch.Folder)
		assert.Equal(t, 1, fetch.TotalCount)
		require.Len(t, fetch.Messages, 1)
		assert.Equal(t, "Two", fetch.Messages[0].Subject)
		assert.Equal(t, models.FolderUnread, fetch.Messages[0].Folder)
	})

	t.Run("missing mailbox", func(t *testing.T) {
		_, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: "Nope"})
		assert.Error(t, err)
	})
}

func TestFetchFolderThreaded(t *testing.T) {
	f := newServiceFixture(t)
	f.add(t, "<root@test>", "Plans", 1, true, "")
	f.add(t, "<other@test>", "Other", 2, true, "")
	f.add(t, "<reply@test>", "Re: Plans", 3, false, "<root@test>")

	fetch, err := f.service.FetchFolderFor(context.Background(), "user-1", f.settings,
		FetchRequest{Folder: models.FolderInbox, Limit: 10, Threaded: true})
	require.NoError(t, err)

	// Two conversations plus the preloaded message.
	assert.Equal(t, 2+preloadedInboxMessages, fetch.TotalCount)
	require.Len(t, fetch.Messages, 2+preloadedInboxMessages)

	root := fetch.Messages[0]
	assert.Equal(t, MessageIDFromHeader("<root@test>"), root.ID)
	assert.Equal(t, "Plans", root.Subject)
	assert.True(t, root.HasChildren)
	assert.Equal(t, 1, root.ChildrenCount)
	require.NotNil(t, root.ChildrenFolderInfo)
	assert.Equal(t, 1, root.ChildrenFolderInfo.NonTrashChildrenCount)
	assert.False(t, root.Read, "an unread reply makes the conversation unread")
	assert.Equal(t, 3, root.Updated.Minute(), "the conversation is as recent as its newest reply")

	assert.Equal(t, "Other", fetch.Messages[1].Subject)
	assert.False(t, fetch.Messages[1].HasChildren)
}

func TestFetchFolderNotConfigured(t *testing.T) {
	service := NewService(nil, NewPool(false), testutil.GetTestEncryptor(t))
	defer service.Close()

	_, err := service.FetchFolderFor(context.Background(), "user-1", &models.UserSettings{}, FetchRequest{Folder: models.FolderInbox})
	assert.ErrorIs(t, err, ErrIMAPNotConfigured)
}

func TestFetchFolderCanceledContext(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.FetchFolderFor(ctx, "user-1", f.settings, FetchRequest{Folder: models.FolderInbox})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPushNewMessages(t *testing.T) {
	f := newServiceFixture(t)
	rootUID := f.add(t, "<root@test>", "Plans", 1, true, "")

	t.Run("nothing new", func(t *testing.T) {
		sink := &recordingSink{}
		next, err := f.service.PushNewMessages(context.Background(), "user-1", f.settings, rootUID, sink)
		require.NoError(t, err)
		assert.Equal(t, rootUID, next)
		assert.Empty(t, sink.events)
	})

	t.Run("new reply is pushed with its conversation root", func(t *testing.T) {
		replyUID := f.add(t, "<reply@test>", "Re: Plans", 2, false, "<root@test>")

		sink := &recordingSink{threaded: true}
		next, err := f.service.PushNewMessages(context.Background(), "user-1", f.settings, rootUID, sink)
		require.NoError(t, err)
		assert.Equal(t, replyUID, next)

		require.Len(t, sink.events, 1)
		push, ok := sink.events[0].(mailstate.Fetch)
		require.True(t, ok)
		assert.True(t, push.FromSocket)
		assert.Equal(t, models.FolderInbox, push.Folder)
		require.Len(t, push.Messages, 1)
		assert.Equal(t, MessageIDFromHeader("<reply@test>"), push.Messages[0].ID)
		assert.Equal(t, MessageIDFromHeader("<root@test>"), push.Messages[0].Parent)
	})

	t.Run("flat mode leaves parents unset", func(t *testing.T) {
		sink := &recordingSink{}
		_, err := f.service.PushNewMessages(context.Background(), "user-1", f.settings, rootUID, sink)
		require.NoError(t, err)

		require.Len(t, sink.events, 1)
		push := sink.events[0].(mailstate.Fetch)
		require.Len(t, push.Messages, 1)
		assert.Zero(t, push.Messages[0].Parent)
	})
}
