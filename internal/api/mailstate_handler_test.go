package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
	"github.com/vdavid/mailview/internal/session"
	"github.com/vdavid/mailview/internal/testutil"
	"github.com/vdavid/mailview/internal/testutil/mocks"
)

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) ViewResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var response ViewResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	return response
}

func TestMailStateHandler_PostEvent(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	manager := newTestManager(pool)
	defer manager.Close()
	handler := NewMailStateHandler(pool, manager, nil)

	email := "events@example.com"
	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.PostEvent(rr, createRequestWithUserAndBody("POST", "/api/v1/events", email, body))
		return rr
	}

	t.Run("applies events and returns the active view", func(t *testing.T) {
		decodeView(t, post(`{"type":"set_current_folder","payload":{"folder":"inbox"}}`))

		fetch, err := mailstate.EncodeEvent(mailstate.Fetch{
			Folder:     models.FolderInbox,
			Messages:   []models.Message{testMessage(2, models.FolderInbox, "Second"), testMessage(1, models.FolderInbox, "First")},
			TotalCount: 2,
		})
		require.NoError(t, err)

		response := decodeView(t, post(string(fetch)))
		assert.Equal(t, models.FolderInbox, response.View.Folder)
		assert.Equal(t, 2, response.View.TotalCount)
		require.Len(t, response.View.Messages, 2)
		assert.Equal(t, "Second", response.View.Messages[0].Subject)

		response = decodeView(t, post(`{"type":"set_read","payload":{"ids":"1,2","read":true}}`))
		for _, m := range response.View.Messages {
			assert.True(t, m.Read)
		}
	})

	t.Run("ignores unknown event types", func(t *testing.T) {
		response := decodeView(t, post(`{"type":"no_such_event","payload":{}}`))
		assert.Len(t, response.View.Messages, 2)
	})

	t.Run("rejects malformed envelopes", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(`{not json`).Code)
		assert.Equal(t, http.StatusBadRequest, post(`{"type":"set_read","payload":{"ids":"a,b"}}`).Code)
	})

	t.Run("returns 401 when no user email in context", func(t *testing.T) {
		VerifyAuthCheck(t, handler.PostEvent, "POST", "/api/v1/events")
	})
}

func TestMailStateHandler_GetView(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	encryptor := testutil.GetTestEncryptor(t)

	t.Run("fetches a missing folder once", func(t *testing.T) {
		email := "view@example.com"
		userID := setupTestUserAndSettings(t, pool, encryptor, email)

		fetcher := mocks.NewIMAPService(t)
		fetcher.On("FetchFolder", mock.Anything, userID, imap.FetchRequest{Folder: models.FolderInbox, Page: 1, Limit: 20}).
			Return(mailstate.Fetch{
				Folder:     models.FolderInbox,
				Messages:   []models.Message{testMessage(10, models.FolderInbox, "Hello")},
				TotalCount: 1,
			}, nil).
			Once()

		manager := newTestManager(pool)
		defer manager.Close()
		handler := NewMailStateHandler(pool, manager, session.NewRefresher(fetcher, 2))

		for range 2 {
			rr := httptest.NewRecorder()
			handler.GetView(rr, createRequestWithUser("GET", "/api/v1/view?folder=inbox", email))

			response := decodeView(t, rr)
			assert.True(t, response.View.Cached)
			assert.False(t, response.View.Dirty)
			require.Len(t, response.View.Messages, 1)
			assert.Equal(t, "Hello", response.View.Messages[0].Subject)
		}
	})

	t.Run("passes page and limit through", func(t *testing.T) {
		email := "paging@example.com"
		userID := setupTestUserAndSettings(t, pool, encryptor, email)

		fetcher := mocks.NewIMAPService(t)
		fetcher.On("FetchFolder", mock.Anything, userID, imap.FetchRequest{Folder: models.FolderSent, Page: 2, Limit: 5}).
			Return(mailstate.Fetch{Folder: models.FolderSent, Limit: 5, Offset: 5, IsNotFirstPage: true, TotalCount: 7}, nil).
			Once()

		manager := newTestManager(pool)
		defer manager.Close()
		handler := NewMailStateHandler(pool, manager, session.NewRefresher(fetcher, 2))

		rr := httptest.NewRecorder()
		handler.GetView(rr, createRequestWithUser("GET", "/api/v1/view?folder=sent&page=2&limit=5", email))
		response := decodeView(t, rr)
		assert.Equal(t, models.FolderSent, response.View.Folder)
	})

	t.Run("serves the projection when IMAP is not configured", func(t *testing.T) {
		fetcher := mocks.NewIMAPService(t)
		fetcher.On("FetchFolder", mock.Anything, mock.Anything, mock.Anything).
			Return(mailstate.Fetch{}, fmt.Errorf("failed to get user settings: %w", db.ErrUserSettingsNotFound))

		manager := newTestManager(pool)
		defer manager.Close()
		handler := NewMailStateHandler(pool, manager, session.NewRefresher(fetcher, 2))

		rr := httptest.NewRecorder()
		handler.GetView(rr, createRequestWithUser("GET", "/api/v1/view?folder=trash", "unconfigured@example.com"))

		response := decodeView(t, rr)
		assert.Equal(t, models.FolderTrash, response.View.Folder)
		assert.False(t, response.View.Cached)
		assert.Empty(t, response.View.Messages)
	})

	t.Run("returns 502 when the IMAP fetch fails", func(t *testing.T) {
		email := "imap-down@example.com"
		setupTestUserAndSettings(t, pool, encryptor, email)

		fetcher := mocks.NewIMAPService(t)
		fetcher.On("FetchFolder", mock.Anything, mock.Anything, mock.Anything).
			Return(mailstate.Fetch{}, errors.New("dial tcp: connection refused"))

		manager := newTestManager(pool)
		defer manager.Close()
		handler := NewMailStateHandler(pool, manager, session.NewRefresher(fetcher, 2))

		rr := httptest.NewRecorder()
		handler.GetView(rr, createRequestWithUser("GET", "/api/v1/view", email))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("returns 401 when no user email in context", func(t *testing.T) {
		manager := newTestManager(pool)
		defer manager.Close()
		VerifyAuthCheck(t, NewMailStateHandler(pool, manager, nil).GetView, "GET", "/api/v1/view")
	})
}

func TestMailStateHandler_GetUnread(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	manager := newTestManager(pool)
	defer manager.Close()
	handler := NewMailStateHandler(pool, manager, nil)

	email := "unread@example.com"
	rr := httptest.NewRecorder()
	handler.PostEvent(rr, createRequestWithUserAndBody("POST", "/api/v1/events", email, `{"type":"unread_counts","payload":{"counts":{"inbox":3,"spam":2}}}`))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.GetUnread(rr, createRequestWithUser("GET", "/api/v1/unread", email))
	require.Equal(t, http.StatusOK, rr.Code)

	var summary mailstate.UnreadSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
	assert.Equal(t, 3, summary.Counts[models.FolderInbox])
	assert.Equal(t, 2, summary.Counts[models.FolderSpam])
}

func TestMailStateHandler_PostLogout(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	manager := newTestManager(pool)
	defer manager.Close()
	handler := NewMailStateHandler(pool, manager, nil)

	email := "logout@example.com"
	userID, err := db.GetOrCreateUser(context.Background(), pool, email)
	require.NoError(t, err)

	s, err := manager.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, s.Apply(context.Background(), mailstate.Fetch{
		Folder:   models.FolderInbox,
		Messages: []models.Message{testMessage(1, models.FolderInbox, "Bye")},
	}))

	rr := httptest.NewRecorder()
	handler.PostLogout(rr, createRequestWithUser("POST", "/api/v1/logout", email))
	require.Equal(t, http.StatusOK, rr.Code)

	_, ok := manager.Lookup(userID)
	assert.False(t, ok)
	_, cached := s.Store.FolderState(models.FolderInbox)
	assert.False(t, cached)

	// Logging out without a session is still fine.
	rr = httptest.NewRecorder()
	handler.PostLogout(rr, createRequestWithUser("POST", "/api/v1/logout", email))
	assert.Equal(t, http.StatusOK, rr.Code)
}
