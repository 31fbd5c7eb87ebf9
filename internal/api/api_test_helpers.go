package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/models"
)

// setupTestUserAndSettings creates a test user and saves their settings.
// Returns the userID for use in tests.
func setupTestUserAndSettings(t *testing.T, pool *pgxpool.Pool, encryptor *crypto.Encryptor, email string) string {
	t.Helper()
	ctx := context.Background()
	userID, err := db.GetOrCreateUser(ctx, pool, email)
	require.NoError(t, err)

	encryptedIMAPPassword, err := encryptor.Encrypt("imap_pass")
	require.NoError(t, err)

	settings := &models.UserSettings{
		UserID:                userID,
		PageLimit:             20,
		ConversationViewMode:  false,
		IMAPServerHostname:    "imap.test.com",
		IMAPUsername:          "user",
		EncryptedIMAPPassword: encryptedIMAPPassword,
	}
	require.NoError(t, db.SaveUserSettings(ctx, pool, settings))
	return userID
}

// createRequestWithUser creates an HTTP request with user email in context.
func createRequestWithUser(method, url, email string) *http.Request {
	return createRequestWithUserAndBody(method, url, email, "")
}

func createRequestWithUserAndBody(method, url, email, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	ctx := context.WithValue(req.Context(), auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

// testMessage is a minimal inbox record.
func testMessage(id models.MessageID, folder models.Folder, subject string) models.Message {
	return models.Message{
		ID:      id,
		Folder:  folder,
		Subject: subject,
		Sender:  "alice@example.com",
		Updated: time.Date(2025, 1, 1, 12, int(id), 0, 0, time.UTC),
	}
}

// FailingResponseWriter is a ResponseWriter that fails on Write to test error handling.
type FailingResponseWriter struct {
	http.ResponseWriter
	WriteShouldFail bool
}

func (f *FailingResponseWriter) Write(p []byte) (int, error) {
	if f.WriteShouldFail {
		return 0, fmt.Errorf("write failed")
	}
	return f.ResponseWriter.Write(p)
}

// VerifyAuthCheck verifies that the handler returns 401 Unauthorized when no user is in context.
func VerifyAuthCheck(t *testing.T, handlerFunc http.HandlerFunc, method, url string) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rr := httptest.NewRecorder()
	handlerFunc(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 when no user email in context")
}
