package models

import (
	"time"
)

// DefaultPageLimit is the folder page size used when a user has not chosen one.
const DefaultPageLimit = 20

// User represents a mailview user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSettings holds user-specific display settings and encrypted IMAP credentials.
type UserSettings struct {
	UserID                string    `json:"user_id"`
	PageLimit             int       `json:"page_limit"`
	ConversationViewMode  bool      `json:"conversation_view_mode"`
	IMAPServerHostname    string    `json:"imap_server_hostname"`
	IMAPUsername          string    `json:"imap_username"`
	EncryptedIMAPPassword []byte    `json:"-"`
	ArchiveFolderName     string    `json:"archive_folder_name"`
	SentFolderName        string    `json:"sent_folder_name"`
	DraftsFolderName      string    `json:"drafts_folder_name"`
	TrashFolderName       string    `json:"trash_folder_name"`
	SpamFolderName        string    `json:"spam_folder_name"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IMAPConfigured reports whether the settings carry enough to reach an IMAP server.
func (s *UserSettings) IMAPConfigured() bool {
	return s != nil && s.IMAPServerHostname != "" && s.IMAPUsername != "" && len(s.EncryptedIMAPPassword) > 0
}

// EffectivePageLimit returns the page limit, falling back to DefaultPageLimit.
func (s *UserSettings) EffectivePageLimit() int {
	if s == nil || s.PageLimit <= 0 {
		return DefaultPageLimit
	}
	return s.PageLimit
}

// UserSettingsRequest represents the request payload for saving user settings.
type UserSettingsRequest struct {
	PageLimit            int    `json:"page_limit"`
	ConversationViewMode bool   `json:"conversation_view_mode"`
	IMAPServerHostname   string `json:"imap_server_hostname"`
	IMAPUsername         string `json:"imap_username"`
	IMAPPassword         string `json:"imap_password"`
	ArchiveFolderName    string `json:"archive_folder_name"`
	SentFolderName       string `json:"sent_folder_name"`
	DraftsFolderName     string `json:"drafts_folder_name"`
	TrashFolderName      string `json:"trash_folder_name"`
	SpamFolderName       string `json:"spam_folder_name"`
}

// UserSettingsResponse represents the response payload for user settings (passwords are never included).
type UserSettingsResponse struct {
	PageLimit            int    `json:"page_limit"`
	ConversationViewMode bool   `json:"conversation_view_mode"`
	IMAPServerHostname   string `json:"imap_server_hostname"`
	IMAPUsername         string `json:"imap_username"`
	IMAPPasswordSet      bool   `json:"imap_password_set"`
	ArchiveFolderName    string `json:"archive_folder_name"`
	SentFolderName       string `json:"sent_folder_name"`
	DraftsFolderName     string `json:"drafts_folder_name"`
	TrashFolderName      string `json:"trash_folder_name"`
	SpamFolderName       string `json:"spam_folder_name"`
}

// AuthStatusResponse represents the authentication and setup status of a user.
type AuthStatusResponse struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	IsSetupComplete bool `json:"isSetupComplete"`
}
