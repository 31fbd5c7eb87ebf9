package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/session"
)

// MailStateHandler exposes a user's projection: events go in, views come out.
type MailStateHandler struct {
	pool      *pgxpool.Pool
	sessions  *session.Manager
	refresher *session.Refresher
}

// NewMailStateHandler creates a new MailStateHandler. refresher may be nil,
// in which case views are served from whatever the projection holds.
func NewMailStateHandler(pool *pgxpool.Pool, sessions *session.Manager, refresher *session.Refresher) *MailStateHandler {
	return &MailStateHandler{
		pool:      pool,
		sessions:  sessions,
		refresher: refresher,
	}
}

// PostEvent decodes one event envelope, applies it and returns the active view.
// Envelopes of an unknown type are acknowledged without changing anything.
func (h *MailStateHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		log.Printf("MailStateHandler: Failed to read request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := mailstate.DecodeEvent(body)
	unknown := errors.Is(err, mailstate.ErrUnknownEvent)
	if err != nil && !unknown {
		log.Printf("MailStateHandler: Failed to decode event: %v", err)
		http.Error(w, "Invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}

	s, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	if unknown {
		log.Printf("MailStateHandler: Ignoring event for user %s: %v", userID, err)
	} else if err := s.Apply(ctx, ev); err != nil {
		log.Printf("MailStateHandler: Failed to apply %s event: %v", ev.Kind(), err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, ViewResponse{View: s.Store.View(), Unread: s.Store.UnreadSummary()})
}

// GetView makes the requested folder active and returns its view, fetching
// it from IMAP first when the cached listing is missing or stale.
func (h *MailStateHandler) GetView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	s, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	folder := ParseFolder(r)
	page, limit := ParsePaginationParams(r, s.Store.PageLimit())

	if err := s.Apply(ctx, mailstate.SetCurrentFolder{Folder: folder}); err != nil {
		log.Printf("MailStateHandler: Failed to set current folder: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if h.refresher != nil {
		_, err := h.refresher.EnsureFresh(ctx, s, folder, page, limit)
		switch {
		case err == nil:
		case errors.Is(err, imap.ErrIMAPNotConfigured), errors.Is(err, db.ErrUserSettingsNotFound):
			// Nothing to fetch from; serve the projection as is.
		default:
			log.Printf("MailStateHandler: Failed to refresh %s for user %s: %v", folder, userID, err)
			http.Error(w, "Failed to fetch folder from IMAP server", http.StatusBadGateway)
			return
		}
	}

	WriteJSONResponse(w, ViewResponse{View: s.Store.ViewOf(folder), Unread: s.Store.UnreadSummary()})
}

// GetUnread returns the unread counts.
func (h *MailStateHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	s, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	WriteJSONResponse(w, s.Store.UnreadSummary())
}

// PostLogout wipes the user's projection and discards the session.
func (h *MailStateHandler) PostLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	if s, ok := h.sessions.Lookup(userID); ok {
		if err := s.Apply(ctx, mailstate.ClearOnLogout{}); err != nil {
			log.Printf("MailStateHandler: Failed to clear state on logout: %v", err)
		}
		h.sessions.Drop(userID)
	}

	writeSuccess(w)
}

func (h *MailStateHandler) session(w http.ResponseWriter, r *http.Request, userID string) (*session.Session, bool) {
	s, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		log.Printf("MailStateHandler: Failed to get session for user %s: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}
