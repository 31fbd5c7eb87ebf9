package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
	"github.com/vdavid/mailview/internal/session"
)

// maxPageLimit bounds the page size a user can choose.
const maxPageLimit = 200

// SettingsHandler handles user settings-related API requests.
type SettingsHandler struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
	sessions  *session.Manager
}

// NewSettingsHandler creates a new SettingsHandler instance. sessions may be
// nil, in which case saved settings only apply to sessions created later.
func NewSettingsHandler(pool *pgxpool.Pool, encryptor *crypto.Encryptor, sessions *session.Manager) *SettingsHandler {
	return &SettingsHandler{
		pool:      pool,
		encryptor: encryptor,
		sessions:  sessions,
	}
}

// GetSettings returns the user settings for the current user.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	settings, err := db.GetUserSettings(ctx, h.pool, userID)
	if errors.Is(err, db.ErrUserSettingsNotFound) {
		http.Error(w, "Settings not found for this user", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("SettingsHandler: Failed to get settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, models.UserSettingsResponse{
		PageLimit:            settings.EffectivePageLimit(),
		ConversationViewMode: settings.ConversationViewMode,
		IMAPServerHostname:   settings.IMAPServerHostname,
		IMAPUsername:         settings.IMAPUsername,
		IMAPPasswordSet:      len(settings.EncryptedIMAPPassword) > 0,
		ArchiveFolderName:    settings.ArchiveFolderName,
		SentFolderName:       settings.SentFolderName,
		DraftsFolderName:     settings.DraftsFolderName,
		TrashFolderName:      settings.TrashFolderName,
		SpamFolderName:       settings.SpamFolderName,
	})
}

// PostSettings saves or updates the user settings for the current user.
// A live session is rebuilt when the page limit or IMAP account changed, and
// switched in place when only the conversation view mode changed.
func (h *SettingsHandler) PostSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req models.UserSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("SettingsHandler: Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validateSettingsRequest(&req); err != nil {
		log.Printf("SettingsHandler: Validation failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Existing settings keep the stored password when the request omits it.
	existingSettings, err := db.GetUserSettings(ctx, h.pool, userID)
	if err != nil && !errors.Is(err, db.ErrUserSettingsNotFound) {
		log.Printf("SettingsHandler: Failed to get existing settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var encryptedIMAPPassword []byte
	if req.IMAPPassword == "" {
		if existingSettings == nil {
			http.Error(w, "IMAP password is required for initial setup", http.StatusBadRequest)
			return
		}
		encryptedIMAPPassword = existingSettings.EncryptedIMAPPassword
	} else {
		encryptedIMAPPassword, err = h.encryptor.Encrypt(req.IMAPPassword)
		if err != nil {
			log.Printf("SettingsHandler: Failed to encrypt IMAP password: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	settings := &models.UserSettings{
		UserID:                userID,
		PageLimit:             req.PageLimit,
		ConversationViewMode:  req.ConversationViewMode,
		IMAPServerHostname:    req.IMAPServerHostname,
		IMAPUsername:          req.IMAPUsername,
		EncryptedIMAPPassword: encryptedIMAPPassword,
		ArchiveFolderName:     req.ArchiveFolderName,
		SentFolderName:        req.SentFolderName,
		DraftsFolderName:      req.DraftsFolderName,
		TrashFolderName:       req.TrashFolderName,
		SpamFolderName:        req.SpamFolderName,
	}

	if err := db.SaveUserSettings(ctx, h.pool, settings); err != nil {
		log.Printf("SettingsHandler: Failed to save settings: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.applyToSession(r, userID, existingSettings, settings, req.IMAPPassword != ""); err != nil {
		log.Printf("SettingsHandler: Failed to apply settings to session: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeSuccess(w)
}

func (h *SettingsHandler) applyToSession(r *http.Request, userID string, before, after *models.UserSettings, passwordChanged bool) error {
	if h.sessions == nil {
		return nil
	}
	s, ok := h.sessions.Lookup(userID)
	if !ok {
		return nil
	}

	if before == nil || passwordChanged ||
		s.Store.PageLimit() != after.EffectivePageLimit() ||
		before.IMAPServerHostname != after.IMAPServerHostname ||
		before.IMAPUsername != after.IMAPUsername {
		h.sessions.Drop(userID)
		return nil
	}

	if s.ConversationViewMode() != after.ConversationViewMode {
		if err := s.Apply(r.Context(), mailstate.ToggleConversationMode{Enabled: after.ConversationViewMode}); err != nil {
			return fmt.Errorf("failed to toggle conversation view mode: %w", err)
		}
	}
	return nil
}

// validateSettingsRequest checks the required fields. The password is
// optional on update and enforced separately for initial setup.
func validateSettingsRequest(req *models.UserSettingsRequest) error {
	if req.IMAPServerHostname == "" {
		return errors.New("IMAP server hostname is required")
	}
	if req.IMAPUsername == "" {
		return errors.New("IMAP username is required")
	}
	if req.PageLimit < 0 || req.PageLimit > maxPageLimit {
		return fmt.Errorf("page limit must be between 0 and %d", maxPageLimit)
	}
	return nil
}
