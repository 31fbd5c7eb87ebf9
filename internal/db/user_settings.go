package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/models"
)

// ErrUserSettingsNotFound is returned when user settings cannot be found.
var ErrUserSettingsNotFound = errors.New("user settings not found")

// UserSettingsExist returns true if the user settings exist.
func UserSettingsExist(ctx context.Context, pool *pgxpool.Pool, userID string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_settings WHERE user_id = $1)
	`, userID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check user settings existence: %w", err)
	}

	return exists, nil
}

// GetUserSettings returns the user settings for the given user.
func GetUserSettings(ctx context.Context, pool *pgxpool.Pool, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings

	err := pool.QueryRow(ctx, `
		SELECT
			user_id,
			page_limit,
			conversation_view_mode,
			imap_server_hostname,
			imap_username,
			encrypted_imap_password,
			archive_folder_name,
			sent_folder_name,
			drafts_folder_name,
			trash_folder_name,
			spam_folder_name,
			created_at,
			updated_at
		FROM user_settings
		WHERE user_id = $1
	`, userID).Scan(
		&settings.UserID,
		&settings.PageLimit,
		&settings.ConversationViewMode,
		&settings.IMAPServerHostname,
		&settings.IMAPUsername,
		&settings.EncryptedIMAPPassword,
		&settings.ArchiveFolderName,
		&settings.SentFolderName,
		&settings.DraftsFolderName,
		&settings.TrashFolderName,
		&settings.SpamFolderName,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserSettingsNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user settings: %w", err)
	}

	return &settings, nil
}

// SaveUserSettings saves the user settings for the given user.
// A nil EncryptedIMAPPassword keeps the stored password. Empty folder names
// fall back to the column defaults.
func SaveUserSettings(ctx context.Context, pool *pgxpool.Pool, settings *models.UserSettings) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO user_settings (
			user_id,
			page_limit,
			conversation_view_mode,
			imap_server_hostname,
			imap_username,
			encrypted_imap_password,
			archive_folder_name,
			sent_folder_name,
			drafts_folder_name,
			trash_folder_name,
			spam_folder_name
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			COALESCE(NULLIF($7, ''), 'Archive'),
			COALESCE(NULLIF($8, ''), 'Sent'),
			COALESCE(NULLIF($9, ''), 'Drafts'),
			COALESCE(NULLIF($10, ''), 'Trash'),
			COALESCE(NULLIF($11, ''), 'Spam')
		)
		ON CONFLICT (user_id) DO UPDATE SET
			page_limit = EXCLUDED.page_limit,
			conversation_view_mode = EXCLUDED.conversation_view_mode,
			imap_server_hostname = EXCLUDED.imap_server_hostname,
			imap_username = EXCLUDED.imap_username,
			encrypted_imap_password = COALESCE(EXCLUDED.encrypted_imap_password, user_settings.encrypted_imap_password),
			archive_folder_name = EXCLUDED.archive_folder_name,
			sent_folder_name = EXCLUDED.sent_folder_name,
			drafts_folder_name = EXCLUDED.drafts_folder_name,
			trash_folder_name = EXCLUDED.trash_folder_name,
			spam_folder_name = EXCLUDED.spam_folder_name,
			updated_at = NOW()
	`,
		settings.UserID,
		settings.EffectivePageLimit(),
		settings.ConversationViewMode,
		settings.IMAPServerHostname,
		settings.IMAPUsername,
		settings.EncryptedIMAPPassword,
		settings.ArchiveFolderName,
		settings.SentFolderName,
		settings.DraftsFolderName,
		settings.TrashFolderName,
		settings.SpamFolderName,
	)

	if err != nil {
		return fmt.Errorf("failed to save user settings: %w", err)
	}

	return nil
}
