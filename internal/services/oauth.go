package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	oauthStateAudience = "oauth_state"
	oauthStateTTL      = 10 * time.Minute
	oauthCallbackPath  = "/auth/callback"

	msgOAuthFailed        = "Could not authenticate with provider"
	msgOAuthUnverified    = "Your provider account email is not verified"
	msgOAuthAccountExists = "An account with this email already exists, sign in the way you signed up"
)

var errUnverifiedEmail = errors.New("provider reports the email as unverified")

type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

type oauthStateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

func newOAuthProviders(cfg config.AuthConfig) map[string]*oauthProvider {
	providers := make(map[string]*oauthProvider, len(cfg.OAuth))
	redirect := strings.TrimRight(cfg.SiteURL, "/") + oauthCallbackPath
	for name, p := range cfg.OAuth {
		providers[name] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  p.AuthURL,
					TokenURL: p.TokenURL,
				},
				RedirectURL: redirect,
				Scopes:      p.Scopes,
			},
			userInfoURL: p.UserInfoURL,
		}
	}
	return providers
}

// SignInWithOAuth returns the provider's authorization URL as a redirect
func (s *AuthService) SignInWithOAuth(ctx context.Context, form OAuthForm) ActionResult {
	if fields := validateForm(s.validate, form); fields != nil {
		return FieldError{Fields: fields}
	}

	p, ok := s.providers[form.Provider]
	if !ok {
		return GeneralError{Message: "Provider is not enabled"}
	}

	state, err := s.signOAuthState(form.Provider)
	if err != nil {
		log.Error().Err(err).Str("provider", form.Provider).Msg("Failed to sign oauth state")
		return GeneralError{Message: msgOAuthFailed}
	}

	return Ok{Redirect: p.config.AuthCodeURL(state)}
}

// CompleteOAuth finishes an authorization code flow and opens a session for the
// provider account's email, registering it on first use
func (s *AuthService) CompleteOAuth(ctx context.Context, code, state string) ActionResult {
	if code == "" {
		return GeneralError{Message: msgOAuthFailed}
	}

	claims, err := s.parseOAuthState(state)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected oauth state")
		return GeneralError{Message: msgOAuthFailed}
	}
	name := claims.Provider
	p, ok := s.providers[name]
	if !ok {
		return GeneralError{Message: msgOAuthFailed}
	}

	// A state is good for one callback only.
	first, err := s.revoker.RevokeOnce(ctx, claims.ID, claims.ExpiresAt.Sub(s.now()))
	if err != nil {
		log.Error().Err(err).Str("provider", name).Msg("Failed to consume oauth state")
		return GeneralError{Message: msgOAuthFailed}
	}
	if !first {
		log.Warn().Str("provider", name).Msg("Rejected replayed oauth state")
		return GeneralError{Message: msgOAuthFailed}
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("provider", name).Msg("Failed to exchange oauth code")
		return GeneralError{Message: msgOAuthFailed}
	}

	email, err := fetchOAuthEmail(ctx, p.config.Client(ctx, tok), p.userInfoURL)
	if errors.Is(err, errUnverifiedEmail) {
		log.Warn().Str("provider", name).Msg("Rejected unverified oauth email")
		return GeneralError{Message: msgOAuthUnverified}
	}
	if err != nil {
		log.Error().Err(err).Str("provider", name).Msg("Failed to fetch oauth user info")
		return GeneralError{Message: msgOAuthFailed}
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Provider != name {
			log.Warn().
				Str("user_id", user.ID).
				Str("provider", name).
				Str("registered_with", user.Provider).
				Msg("Refused to link oauth login to existing account")
			return GeneralError{Message: msgOAuthAccountExists}
		}
	case errors.Is(err, models.ErrNotFound):
		user = &models.User{
			ID:        uuid.New().String(),
			Email:     strings.ToLower(email),
			Provider:  name,
			CreatedAt: s.now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			log.Error().Err(err).Msg("Failed to create oauth user")
			return GeneralError{Message: msgOAuthFailed}
		}
		log.Info().Str("user_id", user.ID).Str("provider", name).Msg("User registered")
	default:
		log.Error().Err(err).Msg("Failed to look up oauth user")
		return GeneralError{Message: msgOAuthFailed}
	}

	return s.openSession(user, msgOAuthFailed)
}

func (s *AuthService) signOAuthState(provider string) (string, error) {
	now := s.now()
	claims := oauthStateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{oauthStateAudience},
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) parseOAuthState(state string) (*oauthStateClaims, error) {
	claims := &oauthStateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(oauthStateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if claims.Provider == "" || claims.ID == "" {
		return nil, fmt.Errorf("state is missing provider or id")
	}
	return claims, nil
}

func fetchOAuthEmail(ctx context.Context, client *http.Client, userInfoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	// Google and OIDC report email_verified, Discord reports verified.
	var info struct {
		Email         string    `json:"email"`
		EmailVerified *flexBool `json:"email_verified"`
		Verified      *flexBool `json:"verified"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("provider did not return an email")
	}
	for _, flag := range []*flexBool{info.EmailVerified, info.Verified} {
		if flag != nil && !bool(*flag) {
			return "", errUnverifiedEmail
		}
	}
	return info.Email, nil
}

// flexBool decodes JSON booleans that some providers send as strings
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}
