package handlers

import (
	"encoding/json"
	"net/http"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles sign-up, sign-in and sign-out requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp handles POST /api/v1/auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var form services.SignUpForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	respondActionResult(w, h.authService.SignUp(r.Context(), form))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form services.LoginForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	respondActionResult(w, h.authService.SignInWithPassword(r.Context(), form))
}

// OAuth handles POST /api/v1/auth/oauth
func (h *AuthHandler) OAuth(w http.ResponseWriter, r *http.Request) {
	var form services.OAuthForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	respondActionResult(w, h.authService.SignInWithOAuth(r.Context(), form))
}

// Callback handles GET /api/v1/auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error_description"); msg != "" {
		respondError(w, msg, http.StatusBadRequest)
		return
	}
	respondActionResult(w, h.authService.CompleteOAuth(r.Context(), q.Get("code"), q.Get("state")))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		respondError(w, "Invalid session", http.StatusUnauthorized)
		return
	}

	if err := h.authService.SignOut(r.Context(), session); err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to sign out")
		respondError(w, "Failed to sign out", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, services.Ok{Redirect: "/login"})
}
