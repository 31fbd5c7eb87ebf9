package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
	"github.com/vdavid/mailview/internal/session"
	"github.com/vdavid/mailview/internal/testutil"
	ws "github.com/vdavid/mailview/internal/websocket"
)

func readFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v), string(data))
}

func TestWebSocketHandler(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	hub := ws.NewHub(10)
	manager := session.NewManager(session.DBSettings{Pool: pool}, nil, nil, hub, 20)
	defer manager.Close()

	validator := auth.NewValidator("test-secret")
	handler := NewWebSocketHandler(pool, manager, hub, validator)

	server := httptest.NewServer(http.HandlerFunc(handler.Handle))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	token, err := validator.IssueToken("socket@example.com", time.Hour)
	require.NoError(t, err)

	t.Run("sends the view on connect and applies inbound events", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

		var initial session.UpdateMessage
		readFrame(t, conn, &initial)
		assert.Equal(t, "view", initial.Type)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"set_current_folder","payload":{"folder":"starred"}}`)))

		var update session.UpdateMessage
		readFrame(t, conn, &update)
		assert.Equal(t, mailstate.KindSetCurrentFolder, update.Kind)
		assert.Equal(t, models.FolderStarred, update.View.Folder)
	})

	t.Run("accepts the token from the Authorization header", func(t *testing.T) {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		var initial session.UpdateMessage
		readFrame(t, conn, &initial)
		assert.Equal(t, "view", initial.Type)
	})

	t.Run("answers malformed frames with an error frame", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		var initial session.UpdateMessage
		readFrame(t, conn, &initial)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{broken`)))

		var frame errorFrame
		readFrame(t, conn, &frame)
		assert.Equal(t, "error", frame.Type)
		assert.NotEmpty(t, frame.Error)
	})

	t.Run("rejects missing and invalid tokens", func(t *testing.T) {
		for _, url := range []string{wsURL, wsURL + "?token=not-a-jwt"} {
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
	})
}
