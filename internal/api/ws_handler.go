package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/session"
	ws "github.com/vdavid/mailview/internal/websocket"
)

// errorFrame is sent back when an inbound frame cannot be applied.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// WebSocketHandler handles the /api/v1/ws endpoint. Outbound frames are the
// session's view updates; inbound frames are event envelopes, applied as pushes.
type WebSocketHandler struct {
	pool      *pgxpool.Pool
	sessions  *session.Manager
	hub       *ws.Hub
	validator *auth.Validator
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(pool *pgxpool.Pool, sessions *session.Manager, hub *ws.Hub, validator *auth.Validator) *WebSocketHandler {
	return &WebSocketHandler{
		pool:      pool,
		sessions:  sessions,
		hub:       hub,
		validator: validator,
	}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// For now, allow all origins. This server is expected to be used
		// behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with the Hub.
// Browsers cannot set headers on WebSocket connections, so the token comes
// from the token query parameter, with the Authorization header as a fallback.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		log.Printf("WebSocketHandler: No token provided (neither query parameter nor Authorization header)")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userEmail, err := h.validator.ValidateToken(token)
	if err != nil {
		log.Printf("WebSocketHandler: Token validation failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := db.GetOrCreateUser(ctx, h.pool, userEmail)
	if err != nil {
		log.Printf("WebSocketHandler: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Creating the session starts the user's IDLE listener.
	s, err := h.sessions.Get(ctx, userID)
	if err != nil {
		log.Printf("WebSocketHandler: Failed to get session for user %s: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection for user %s: %v", userID, err)
		return
	}

	client := h.hub.Register(userID, conn)
	if client == nil {
		log.Printf("WebSocketHandler: Connection rejected for user %s (max connections exceeded)", userID)
		return
	}
	log.Printf("WebSocketHandler: connection %s established for user %s", client.ID, userID)

	h.writeFrame(client, session.UpdateMessage{Type: "view", View: s.Store.View(), Unread: s.Store.UnreadSummary()})

	go h.readLoop(userID, client)
}

// readLoop applies inbound envelopes until the connection closes, then
// unregisters the client.
func (h *WebSocketHandler) readLoop(userID string, client *ws.Client) {
	defer h.hub.Unregister(userID, client)

	conn := client.Conn()
	conn.SetReadLimit(maxEventBodyBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if err := h.applyFrame(userID, data); err != nil {
			log.Printf("WebSocketHandler: Failed to apply frame for user %s: %v", userID, err)
			h.writeFrame(client, errorFrame{Type: "error", Error: err.Error()})
		}
	}
}

func (h *WebSocketHandler) applyFrame(userID string, data []byte) error {
	ev, err := mailstate.DecodeEvent(data)
	if errors.Is(err, mailstate.ErrUnknownEvent) {
		log.Printf("WebSocketHandler: Ignoring frame for user %s: %v", userID, err)
		return nil
	}
	if err != nil {
		return err
	}

	// Looked up per frame: a logout in another tab replaces the session.
	ctx := context.Background()
	s, err := h.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.Apply(ctx, mailstate.AsPush(ev))
}

func (h *WebSocketHandler) writeFrame(client *ws.Client, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("WebSocketHandler: Failed to marshal frame: %v", err)
		return
	}
	if err := client.Write(payload); err != nil {
		log.Printf("WebSocketHandler: Failed to write frame: %v", err)
	}
}
