package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/decrypt"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// SettingsSource loads a user's settings.
type SettingsSource interface {
	GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// DBSettings reads settings from PostgreSQL.
type DBSettings struct {
	Pool *pgxpool.Pool
}

// GetUserSettings implements SettingsSource.
func (d DBSettings) GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return db.GetUserSettings(ctx, d.Pool, userID)
}

// Hub is where updates are broadcast. The websocket hub implements it.
type Hub interface {
	imap.ConnectionCounter
	Send(userID string, payload []byte)
}

// UpdateMessage is the frame broadcast to a user's websocket clients after each event.
type UpdateMessage struct {
	Type   string                  `json:"type"`
	Seq    uint64                  `json:"seq"`
	Kind   mailstate.Kind          `json:"kind"`
	View   mailstate.View          `json:"view"`
	Unread mailstate.UnreadSummary `json:"unread"`
}

type entry struct {
	session        *Session
	unsubscribe    func()
	cancelListener context.CancelFunc
}

// Manager owns the sessions of all users.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	settings         SettingsSource
	imapService      imap.IMAPService
	decrypter        *decrypt.Decrypter
	hub              Hub
	defaultPageLimit int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a Manager. imapService and hub may be nil; without an
// IMAP service no IDLE listeners are started, without a hub updates are not broadcast.
func NewManager(settings SettingsSource, imapService imap.IMAPService, decrypter *decrypt.Decrypter, hub Hub, defaultPageLimit int) *Manager {
	if defaultPageLimit <= 0 {
		defaultPageLimit = models.DefaultPageLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions:         make(map[string]*entry),
		settings:         settings,
		imapService:      imapService,
		decrypter:        decrypter,
		hub:              hub,
		defaultPageLimit: defaultPageLimit,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Get returns the user's session, creating it from their settings on first use.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	if s, ok := m.Lookup(userID); ok {
		return s, nil
	}

	settings, err := m.settings.GetUserSettings(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrUserSettingsNotFound) {
			return nil, fmt.Errorf("failed to get user settings: %w", err)
		}
		settings = &models.UserSettings{UserID: userID, PageLimit: m.defaultPageLimit, ConversationViewMode: true}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have created it while settings loaded.
	if e, ok := m.sessions[userID]; ok {
		return e.session, nil
	}

	pageLimit := settings.PageLimit
	if pageLimit <= 0 {
		pageLimit = m.defaultPageLimit
	}
	s := NewSession(userID, mailstate.NewStore(pageLimit, settings.ConversationViewMode), m.decrypter)
	e := &entry{session: s, unsubscribe: func() {}, cancelListener: func() {}}

	if m.hub != nil {
		e.unsubscribe = s.Store.Subscribe(func(u mailstate.Update) { m.broadcast(userID, u) })
	}

	if m.imapService != nil && settings.IMAPConfigured() {
		listenerCtx, cancel := context.WithCancel(m.ctx)
		e.cancelListener = cancel
		go m.imapService.StartIdleListener(listenerCtx, userID, m.hub, s)
	}

	m.sessions[userID] = e
	log.Printf("Session: created for user %s (page limit %d, conversation view %t)", userID, pageLimit, settings.ConversationViewMode)
	return s, nil
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Drop discards the user's session and stops its listener. The next Get
// builds a fresh one from the stored settings.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	e, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		e.cancelListener()
		e.unsubscribe()
	}
}

// Close drops every session.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.unsubscribe()
	}
}

func (m *Manager) broadcast(userID string, u mailstate.Update) {
	if m.hub.ActiveConnections(userID) == 0 {
		return
	}

	payload, err := json.Marshal(UpdateMessage{Type: "view", Seq: u.Seq, Kind: u.Kind, View: u.View, Unread: u.Unread})
	if err != nil {
		log.Printf("Session: failed to marshal update for user %s: %v", userID, err)
		return
	}
	m.hub.Send(userID, payload)
}
