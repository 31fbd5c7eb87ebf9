package api

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/auth"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/models"
)

// AuthHandler reports whether the caller is signed in and has finished setup.
type AuthHandler struct {
	pool *pgxpool.Pool
}

func NewAuthHandler(pool *pgxpool.Pool) *AuthHandler {
	return &AuthHandler{pool: pool}
}

// GetAuthStatus is only reachable behind RequireAuth, so a request that gets
// here carries a validated token.
func (h *AuthHandler) GetAuthStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, ok := auth.GetUserEmailFromContext(ctx)
	if !ok {
		log.Println("AuthHandler: No user email in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	isSetupComplete, err := h.checkSetupComplete(ctx, email)
	if err != nil {
		log.Printf("AuthHandler: Failed to check setup status: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, models.AuthStatusResponse{
		IsAuthenticated: true,
		IsSetupComplete: isSetupComplete,
	})
}

func (h *AuthHandler) checkSetupComplete(ctx context.Context, email string) (bool, error) {
	userID, err := db.GetOrCreateUser(ctx, h.pool, email)
	if err != nil {
		return false, err
	}

	return db.UserSettingsExist(ctx, h.pool, userID)
}
