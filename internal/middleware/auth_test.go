package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"love-vault-backend/internal/models"

	"github.com/stretchr/testify/require"
)

type stubResolver map[string]*models.Session

func (s stubResolver) GetCurrentUser(ctx context.Context, token string) (*models.Session, error) {
	if session, ok := s[token]; ok {
		return session, nil
	}
	return nil, models.ErrInvalidSession
}

type stubChecker map[string]error

func (s stubChecker) RequireOnboarded(ctx context.Context, userID string) error {
	return s[userID]
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := GetSession(r.Context())
		require.NotNil(t, session)
		w.Write([]byte(session.UserID))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	resolver := stubResolver{"good": {UserID: "user-a", Email: "us@example.com"}}
	handler := AuthMiddleware(resolver)(okHandler(t))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, "user-a", rec.Body.String())
				return
			}
			body := decodeError(t, rec)
			require.Equal(t, "/login?message=You+must+login+to+access+the+app&type=error", body.Redirect)
		})
	}
}

func TestRequireOnboarded(t *testing.T) {
	resolver := stubResolver{
		"done":    {UserID: "user-done"},
		"fresh":   {UserID: "user-fresh"},
		"partial": {UserID: "user-partial"},
		"broken":  {UserID: "user-broken"},
	}
	checker := stubChecker{
		"user-fresh":   models.ErrProfileNotFound,
		"user-partial": models.ErrOnboardingRequired,
		"user-broken":  errors.New("db down"),
	}
	handler := AuthMiddleware(resolver)(RequireOnboarded(checker)(okHandler(t)))

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/moments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("done")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, token := range []string{"fresh", "partial"} {
		rec = serve(token)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, OnboardingRedirect, decodeError(t, rec).Redirect)
	}

	rec = serve("broken")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireOnboarded_WithoutSession(t *testing.T) {
	handler := RequireOnboarded(stubChecker{})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
