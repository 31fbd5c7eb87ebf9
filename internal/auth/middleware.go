package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// UserEmailKey is the context key used to store the authenticated user's email.
const UserEmailKey contextKey = "user_email"

// testModeEnv enables "email:<address>" tokens for local and end-to-end testing.
const testModeEnv = "MAILVIEW_TEST_MODE"

// ErrInvalidToken is returned for tokens that are malformed, expired, or wrongly signed.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims mailview issues and accepts.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Validator checks HS256 bearer tokens signed with a shared secret.
type Validator struct {
	secret   []byte
	testMode bool
}

// NewValidator creates a Validator. Test-mode tokens are accepted when
// MAILVIEW_TEST_MODE is "true".
func NewValidator(secret string) *Validator {
	return &Validator{
		secret:   []byte(secret),
		testMode: os.Getenv(testModeEnv) == "true",
	}
}

// RequireAuth middleware checks for a valid bearer token in the Authorization header.
// It extracts the token, validates it, and stores the user's email in the request context
// for use by downstream handlers. Returns 401 Unauthorized if authentication fails.
func (v *Validator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if authHeader == "" {
			log.Println("Auth: No Authorization header present")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			log.Println("Auth: Invalid Authorization header format")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userEmail, err := v.ValidateToken(token)
		if err != nil {
			log.Printf("Auth: Token validation failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserEmailKey, userEmail)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is case-insensitive per RFC 7235.
func BearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(strings.Join(fields[1:], " "))
	return token, token != ""
}

// GetUserEmailFromContext returns the user email from the context.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

// ValidateToken validates the token and returns the user's email.
// In test mode, a token of the form "email:user@example.com" is accepted as is.
func (v *Validator) ValidateToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == "email:" {
		return "", fmt.Errorf("token is empty")
	}

	if v.testMode && strings.HasPrefix(token, "email:") {
		return strings.TrimPrefix(token, "email:"), nil
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject
	}
	if email == "" {
		return "", fmt.Errorf("%w: no email claim", ErrInvalidToken)
	}

	return email, nil
}

// IssueToken signs a token for email that expires after ttl.
func (v *Validator) IssueToken(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
