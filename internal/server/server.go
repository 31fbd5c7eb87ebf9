// Package server wires the mailview services into an HTTP handler.
package server

import (
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/api"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/config"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/decrypt"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/session"
	ws "github.com/vdavid/mailview/internal/websocket"
)

// maxConnectionsPerUser caps the websocket connections of one user.
const maxConnectionsPerUser = 10

// Server is the mailview HTTP API with the long-lived services behind it.
type Server struct {
	http.Handler

	sessions    *session.Manager
	imapService *imap.Service
}

// Close stops every session's IMAP listener and closes the IMAP connections.
func (s *Server) Close() {
	s.sessions.Close()
	s.imapService.Close()
}

// NewServer wires the services and returns the mailview API server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) (*Server, error) {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	imapPool := imap.NewPoolWithMaxWorkers(cfg.IMAPUseTLS, cfg.IMAPMaxWorkers)
	imapService := imap.NewService(dbPool, imapPool, encryptor)
	wsHub := ws.NewHub(maxConnectionsPerUser)
	validator := auth.NewValidator(cfg.JWTSecret)

	sessions := session.NewManager(session.DBSettings{Pool: dbPool}, imapService, decrypt.New(encryptor), wsHub, cfg.DefaultPageLimit)
	refresher := session.NewRefresher(imapService, cfg.RefreshConcurrency)

	authHandler := api.NewAuthHandler(dbPool)
	settingsHandler := api.NewSettingsHandler(dbPool, encryptor, sessions)
	foldersHandler := api.NewFoldersHandler(dbPool, imapService)
	mailStateHandler := api.NewMailStateHandler(dbPool, sessions, refresher)
	wsHandler := api.NewWebSocketHandler(dbPool, sessions, wsHub, validator)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/auth/status", validator.RequireAuth(http.HandlerFunc(authHandler.GetAuthStatus)))
	mux.Handle("/api/v1/settings", validator.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			settingsHandler.GetSettings(w, r)
		case http.MethodPost:
			settingsHandler.PostSettings(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	mux.Handle("/api/v1/folders", validator.RequireAuth(onlyMethod(http.MethodGet, foldersHandler.GetFolders)))
	mux.Handle("/api/v1/events", validator.RequireAuth(onlyMethod(http.MethodPost, mailStateHandler.PostEvent)))
	mux.Handle("/api/v1/view", validator.RequireAuth(onlyMethod(http.MethodGet, mailStateHandler.GetView)))
	mux.Handle("/api/v1/unread", validator.RequireAuth(onlyMethod(http.MethodGet, mailStateHandler.GetUnread)))
	mux.Handle("/api/v1/logout", validator.RequireAuth(onlyMethod(http.MethodPost, mailStateHandler.PostLogout)))
	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.Handle("/api/v1/ws", http.HandlerFunc(wsHandler.Handle))

	return &Server{Handler: mux, sessions: sessions, imapService: imapService}, nil
}

func onlyMethod(method string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	})
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "mailview API is running")
}
