package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionAudience = "session"

	msgInvalidCredentials = "Invalid login credentials"
	msgAlreadyRegistered  = "User already registered"
	msgSignUpFailed       = "Could not create account, please try again"
	msgSignInFailed       = "Could not sign in, please try again"
)

// sessionClaims are the JWT claims of a session token. Subject is the user id.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService resolves sessions and handles sign-up, sign-in and sign-out
type AuthService struct {
	users      UserStore
	revoker    TokenRevoker
	providers  map[string]*oauthProvider
	jwtSecret  []byte
	sessionTTL time.Duration
	hashCost   int
	validate   *validator.Validate
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, revoker TokenRevoker, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users:      users,
		revoker:    revoker,
		providers:  newOAuthProviders(cfg),
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTTL,
		hashCost:   bcrypt.DefaultCost,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// SignUp registers an email/password account and opens a session for it
func (s *AuthService) SignUp(ctx context.Context, form SignUpForm) ActionResult {
	form.Email = strings.TrimSpace(form.Email)
	if fields := validateForm(s.validate, form); fields != nil {
		return FieldError{Fields: fields}
	}

	_, err := s.users.GetByEmail(ctx, form.Email)
	if err == nil {
		return GeneralError{Message: msgAlreadyRegistered}
	}
	if !errors.Is(err, models.ErrNotFound) {
		log.Error().Err(err).Msg("Failed to look up user on sign-up")
		return GeneralError{Message: msgSignUpFailed}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.hashCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		return GeneralError{Message: msgSignUpFailed}
	}
	hashed := string(hash)

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(form.Email),
		PasswordHash: &hashed,
		Provider:     "email",
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		return GeneralError{Message: msgSignUpFailed}
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	return s.openSession(user, msgSignUpFailed)
}

// SignInWithPassword verifies credentials and opens a session
func (s *AuthService) SignInWithPassword(ctx context.Context, form LoginForm) ActionResult {
	form.Email = strings.TrimSpace(form.Email)
	if fields := validateForm(s.validate, form); fields != nil {
		return FieldError{Fields: fields}
	}

	user, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to look up user on sign-in")
			return GeneralError{Message: msgSignInFailed}
		}
		return GeneralError{Message: msgInvalidCredentials}
	}
	if user.PasswordHash == nil {
		return GeneralError{Message: msgInvalidCredentials}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(form.Password)); err != nil {
		return GeneralError{Message: msgInvalidCredentials}
	}

	return s.openSession(user, msgSignInFailed)
}

// GetCurrentUser resolves a session token to the caller's identity. Revocation
// lookups that fail are treated as revoked.
func (s *AuthService) GetCurrentUser(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.ErrInvalidSession
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject", models.ErrInvalidSession)
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("Failed to check session revocation")
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSession, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", models.ErrInvalidSession)
	}

	return &models.Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the session's token for the rest of its lifetime
func (s *AuthService) SignOut(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.revoker.Revoke(ctx, session.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	log.Info().Str("user_id", session.UserID).Msg("User signed out")
	return nil
}

func (s *AuthService) openSession(user *models.User, failure string) ActionResult {
	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue session")
		return GeneralError{Message: failure}
	}
	return Ok{Token: token, ExpiresAt: expiresAt}
}

func (s *AuthService) issueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
