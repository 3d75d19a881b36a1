package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	users   *fakeUserStore
	revoker *fakeRevoker
	service *AuthService
	now     time.Time
}

func newAuthFixture(cfg config.AuthConfig) *authFixture {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	f := &authFixture{
		users:   newFakeUserStore(),
		revoker: newFakeRevoker(),
		now:     time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	f.service = NewAuthService(f.users, f.revoker, cfg)
	f.service.hashCost = bcrypt.MinCost
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestSignUp_FieldErrors(t *testing.T) {
	f := newAuthFixture(config.AuthConfig{})

	tests := []struct {
		name string
		form SignUpForm
		want map[string]string
	}{
		{
			name: "bad email",
			form: SignUpForm{Email: "nope", Password: "secret1", ConfirmPassword: "secret1"},
			want: map[string]string{"email": "Invalid email address"},
		},
		{
			name: "short password",
			form: SignUpForm{Email: "a@b.co", Password: "123", ConfirmPassword: "123"},
			want: map[string]string{"password": "Password must be at least 6 characters long"},
		},
		{
			name: "mismatch",
			form: SignUpForm{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2"},
			want: map[string]string{"confirm_password": "Passwords don't match"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.service.SignUp(context.Background(), tt.form)
			require.Equal(t, FieldError{Fields: tt.want}, res)
		})
	}
	require.Zero(t, f.users.size())
}

func TestSignUp_ThenSignIn(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(config.AuthConfig{})

	res := f.service.SignUp(ctx, SignUpForm{Email: "Us@Example.com", Password: "secret1", ConfirmPassword: "secret1"})
	ok, isOk := res.(Ok)
	require.True(t, isOk, "got %#v", res)
	require.NotEmpty(t, ok.Token)
	require.Equal(t, f.now.Add(24*time.Hour), ok.ExpiresAt)

	dup := f.service.SignUp(ctx, SignUpForm{Email: "us@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.Equal(t, GeneralError{Message: "User already registered"}, dup)

	wrong := f.service.SignInWithPassword(ctx, LoginForm{Email: "us@example.com", Password: "secret2"})
	require.Equal(t, GeneralError{Message: "Invalid login credentials"}, wrong)

	unknown := f.service.SignInWithPassword(ctx, LoginForm{Email: "them@example.com", Password: "secret1"})
	require.Equal(t, GeneralError{Message: "Invalid login credentials"}, unknown)

	login := f.service.SignInWithPassword(ctx, LoginForm{Email: "us@example.com", Password: "secret1"})
	session, isOk := login.(Ok)
	require.True(t, isOk, "got %#v", login)

	resolved, err := f.service.GetCurrentUser(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, "us@example.com", resolved.Email)
	require.NotEmpty(t, resolved.UserID)
	require.NotEmpty(t, resolved.TokenID)
}

func TestSignIn_FieldErrorsSkipStore(t *testing.T) {
	f := newAuthFixture(config.AuthConfig{})
	f.users.getErr = errStoreDown

	res := f.service.SignInWithPassword(context.Background(), LoginForm{Email: "", Password: ""})
	fe, ok := res.(FieldError)
	require.True(t, ok, "got %#v", res)
	require.Contains(t, fe.Fields, "email")
	require.Contains(t, fe.Fields, "password")
}

func TestGetCurrentUser_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(config.AuthConfig{})

	res := f.service.SignUp(ctx, SignUpForm{Email: "us@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	token := res.(Ok).Token

	_, err := f.service.GetCurrentUser(ctx, "")
	require.ErrorIs(t, err, models.ErrInvalidSession)

	_, err = f.service.GetCurrentUser(ctx, "not-a-jwt")
	require.ErrorIs(t, err, models.ErrInvalidSession)

	other := newAuthFixture(config.AuthConfig{JWTSecret: "ffffffffffffffffffffffffffffffff"})
	_, err = other.service.GetCurrentUser(ctx, token)
	require.ErrorIs(t, err, models.ErrInvalidSession)

	f.now = f.now.Add(25 * time.Hour)
	_, err = f.service.GetCurrentUser(ctx, token)
	require.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestGetCurrentUser_RejectsOAuthState(t *testing.T) {
	f := newAuthFixture(config.AuthConfig{})

	state, err := f.service.signOAuthState("google")
	require.NoError(t, err)

	_, err = f.service.GetCurrentUser(context.Background(), state)
	require.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestSignOut_RevokesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(config.AuthConfig{})

	token := f.service.SignUp(ctx, SignUpForm{Email: "us@example.com", Password: "secret1", ConfirmPassword: "secret1"}).(Ok).Token
	session, err := f.service.GetCurrentUser(ctx, token)
	require.NoError(t, err)

	require.NoError(t, f.service.SignOut(ctx, session))
	require.Equal(t, 24*time.Hour, f.revoker.revoked[session.TokenID])

	_, err = f.service.GetCurrentUser(ctx, token)
	require.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestGetCurrentUser_RevocationLookupFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(config.AuthConfig{})

	token := f.service.SignUp(ctx, SignUpForm{Email: "us@example.com", Password: "secret1", ConfirmPassword: "secret1"}).(Ok).Token
	f.revoker.err = errStoreDown

	_, err := f.service.GetCurrentUser(ctx, token)
	require.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestSignInWithOAuth_ProviderValidation(t *testing.T) {
	f := newAuthFixture(config.AuthConfig{})

	res := f.service.SignInWithOAuth(context.Background(), OAuthForm{Provider: "myspace"})
	require.Equal(t, FieldError{Fields: map[string]string{"provider": "Invalid provider"}}, res)

	res = f.service.SignInWithOAuth(context.Background(), OAuthForm{Provider: "discord"})
	require.Equal(t, GeneralError{Message: "Provider is not enabled"}, res)
}

// newOAuthProvider serves a token endpoint accepting "good-code" and a userinfo
// endpoint answering with userInfo.
func newOAuthProvider(t *testing.T, userInfo string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "provider-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(userInfo))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)
	return provider
}

func newOAuthFixture(provider *httptest.Server, names ...string) *authFixture {
	providers := make(map[string]config.OAuthProviderConfig, len(names))
	for _, name := range names {
		providers[name] = config.OAuthProviderConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			AuthURL:      provider.URL + "/authorize",
			TokenURL:     provider.URL + "/token",
			UserInfoURL:  provider.URL + "/userinfo",
			Scopes:       []string{"email"},
		}
	}
	return newAuthFixture(config.AuthConfig{SiteURL: "https://vault.test", OAuth: providers})
}

// beginOAuth starts a flow for provider and returns the state from the redirect
func beginOAuth(t *testing.T, f *authFixture, provider string) string {
	t.Helper()

	res := f.service.SignInWithOAuth(context.Background(), OAuthForm{Provider: provider})
	redirect, ok := res.(Ok)
	require.True(t, ok, "got %#v", res)

	u, err := url.Parse(redirect.Redirect)
	require.NoError(t, err)
	require.Equal(t, "/authorize", u.Path)
	require.Equal(t, "client", u.Query().Get("client_id"))
	require.Equal(t, "https://vault.test/auth/callback", u.Query().Get("redirect_uri"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestOAuth_FullFlow(t *testing.T) {
	provider := newOAuthProvider(t, `{"email":"us@example.com","email_verified":true,"name":"Us"}`)
	f := newOAuthFixture(provider, "google")
	ctx := context.Background()

	bad := f.service.CompleteOAuth(ctx, "good-code", "tampered")
	require.Equal(t, GeneralError{Message: msgOAuthFailed}, bad)

	bad = f.service.CompleteOAuth(ctx, "bad-code", beginOAuth(t, f, "google"))
	require.Equal(t, GeneralError{Message: msgOAuthFailed}, bad)

	done := f.service.CompleteOAuth(ctx, "good-code", beginOAuth(t, f, "google"))
	session, ok := done.(Ok)
	require.True(t, ok, "got %#v", done)
	require.Equal(t, 1, f.users.size())

	resolved, err := f.service.GetCurrentUser(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, "us@example.com", resolved.Email)

	// A later sign-in with the same provider reuses the account.
	again := f.service.CompleteOAuth(ctx, "good-code", beginOAuth(t, f, "google"))
	next, ok := again.(Ok)
	require.True(t, ok, "got %#v", again)
	require.Equal(t, 1, f.users.size())

	nextSession, err := f.service.GetCurrentUser(ctx, next.Token)
	require.NoError(t, err)
	require.Equal(t, resolved.UserID, nextSession.UserID)
}

func TestCompleteOAuth_StateIsSingleUse(t *testing.T) {
	provider := newOAuthProvider(t, `{"email":"us@example.com","email_verified":true}`)
	f := newOAuthFixture(provider, "google")
	ctx := context.Background()

	state := beginOAuth(t, f, "google")
	_, ok := f.service.CompleteOAuth(ctx, "good-code", state).(Ok)
	require.True(t, ok)

	replay := f.service.CompleteOAuth(ctx, "good-code", state)
	require.Equal(t, GeneralError{Message: msgOAuthFailed}, replay)
	require.Equal(t, 1, f.users.size())
}

func TestCompleteOAuth_StateStoreDown(t *testing.T) {
	provider := newOAuthProvider(t, `{"email":"us@example.com","email_verified":true}`)
	f := newOAuthFixture(provider, "google")

	state := beginOAuth(t, f, "google")
	f.revoker.err = errStoreDown

	res := f.service.CompleteOAuth(context.Background(), "good-code", state)
	require.Equal(t, GeneralError{Message: msgOAuthFailed}, res)
	require.Zero(t, f.users.size())
}

func TestCompleteOAuth_RejectsUnverifiedEmail(t *testing.T) {
	tests := []struct {
		name     string
		userInfo string
	}{
		{name: "oidc", userInfo: `{"email":"victim@example.com","email_verified":false}`},
		{name: "oidc string flag", userInfo: `{"email":"victim@example.com","email_verified":"false"}`},
		{name: "discord", userInfo: `{"email":"victim@example.com","verified":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newOAuthProvider(t, tt.userInfo)
			f := newOAuthFixture(provider, "discord")

			res := f.service.CompleteOAuth(context.Background(), "good-code", beginOAuth(t, f, "discord"))
			require.Equal(t, GeneralError{Message: msgOAuthUnverified}, res)
			require.Zero(t, f.users.size())
		})
	}
}

func TestCompleteOAuth_DoesNotTakeOverExistingAccounts(t *testing.T) {
	provider := newOAuthProvider(t, `{"email":"victim@example.com","email_verified":true,"verified":true}`)
	f := newOAuthFixture(provider, "google", "discord")
	ctx := context.Background()

	signUp := f.service.SignUp(ctx, SignUpForm{Email: "victim@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	_, ok := signUp.(Ok)
	require.True(t, ok, "got %#v", signUp)

	// Password accounts cannot be entered through a provider.
	res := f.service.CompleteOAuth(ctx, "good-code", beginOAuth(t, f, "google"))
	require.Equal(t, GeneralError{Message: msgOAuthAccountExists}, res)
	require.Equal(t, 1, f.users.size())

	// Neither can an account registered through another provider.
	for _, u := range f.users.users {
		u.Provider = "google"
	}
	res = f.service.CompleteOAuth(ctx, "good-code", beginOAuth(t, f, "discord"))
	require.Equal(t, GeneralError{Message: msgOAuthAccountExists}, res)

	_, ok = f.service.CompleteOAuth(ctx, "good-code", beginOAuth(t, f, "google")).(Ok)
	require.True(t, ok)
}

func TestOAuthState_Expires(t *testing.T) {
	f := newAuthFixture(config.AuthConfig{})

	state, err := f.service.signOAuthState("google")
	require.NoError(t, err)

	claims, err := f.service.parseOAuthState(state)
	require.NoError(t, err)
	require.Equal(t, "google", claims.Provider)
	require.NotEmpty(t, claims.ID)

	f.now = f.now.Add(oauthStateTTL + time.Minute)
	_, err = f.service.parseOAuthState(state)
	require.Error(t, err)

	_, err = f.service.parseOAuthState(jwt.New(jwt.SigningMethodHS256).Raw)
	require.Error(t, err)
}
