package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"love-vault-backend/internal/models"

	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionKey contextKey = "session"

// Redirect targets sent with auth failures
var (
	LoginRedirect = "/login?" + url.Values{
		"message": []string{"You must login to access the app"},
		"type":    []string{"error"},
	}.Encode()
	OnboardingRedirect = "/onboarding"
)

// SessionResolver resolves a bearer token to a session
type SessionResolver interface {
	GetCurrentUser(ctx context.Context, token string) (*models.Session, error)
}

// OnboardingChecker reports whether a user has completed onboarding
type OnboardingChecker interface {
	RequireOnboarded(ctx context.Context, userID string) error
}

// AuthMiddleware creates a middleware for session authentication
func AuthMiddleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respondError(w, "Authorization header required", LoginRedirect, http.StatusUnauthorized)
				return
			}

			session, err := resolver.GetCurrentUser(r.Context(), token)
			if err != nil {
				respondError(w, "Invalid session", LoginRedirect, http.StatusUnauthorized)
				return
			}

			ctx := WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOnboarded blocks callers whose profile is missing or not onboarded.
// It must run after AuthMiddleware.
func RequireOnboarded(checker OnboardingChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil {
				respondError(w, "Invalid session", LoginRedirect, http.StatusUnauthorized)
				return
			}

			err := checker.RequireOnboarded(r.Context(), session.UserID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, models.ErrProfileNotFound), errors.Is(err, models.ErrOnboardingRequired):
				respondError(w, "Onboarding required", OnboardingRedirect, http.StatusForbidden)
			default:
				log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to check onboarding")
				respondError(w, "Failed to load profile", "", http.StatusInternalServerError)
			}
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithSession stores session in ctx
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *models.Session {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if session := GetSession(ctx); session != nil {
		return session.UserID
	}
	return ""
}

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message, redirect string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Redirect: redirect})
}
