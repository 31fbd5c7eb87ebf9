package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// maxEventBodyBytes caps an event envelope read from a request or a websocket frame.
const maxEventBodyBytes = 4 << 20

// ViewResponse is the body returned by the view and events endpoints.
type ViewResponse struct {
	View   mailstate.View          `json:"view"`
	Unread mailstate.UnreadSummary `json:"unread"`
}

// GetUserIDFromContext extracts the user's email from context, resolves/creates the DB user,
// and writes appropriate HTTP errors when it fails. Returns (userID, true) on success.
func GetUserIDFromContext(ctx context.Context, w http.ResponseWriter, pool *pgxpool.Pool) (string, bool) {
	email, ok := auth.GetUserEmailFromContext(ctx)
	if !ok {
		log.Println("API: No user email in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}

	userID, err := db.GetOrCreateUser(ctx, pool, email)
	if err != nil {
		log.Printf("API: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return "", false
	}

	return userID, true
}

// ParsePaginationParams parses page and limit from query parameters.
// Returns default values (page=1, limit=defaultLimit) if parameters are missing or invalid.
func ParsePaginationParams(r *http.Request, defaultLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	return page, limit
}

// ParseFolder reads the folder query parameter, defaulting to the inbox.
func ParseFolder(r *http.Request) models.Folder {
	if folder := r.URL.Query().Get("folder"); folder != "" {
		return models.Folder(folder)
	}
	return models.FolderInbox
}

// WriteJSONResponse encodes v to a buffer first so a failed encoding never
// leaves a partial body. It returns false if nothing could be written.
func WriteJSONResponse(w http.ResponseWriter, v any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}

func writeSuccess(w http.ResponseWriter) {
	WriteJSONResponse(w, struct {
		Success bool `json:"success"`
	}{Success: true})
}
