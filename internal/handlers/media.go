package handlers

import (
	"net/http"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/services"
)

// MediaHandler issues URLs for stored media
type MediaHandler struct {
	mediaService *services.MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// SignedURLResponse is a short-lived object URL
type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// GetSignedURL handles GET /api/v1/media/signed-url
func (h *MediaHandler) GetSignedURL(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("bucket")
	path := r.URL.Query().Get("path")
	if bucket == "" || path == "" {
		respondError(w, "bucket and path are required", http.StatusBadRequest)
		return
	}

	url, err := h.mediaService.SignedURL(r.Context(), middleware.GetUserID(r.Context()), bucket, path)
	if err != nil {
		respondServiceError(w, r, err, "Failed to sign URL")
		return
	}

	respondJSON(w, http.StatusOK, SignedURLResponse{
		URL:       url,
		ExpiresIn: int(h.mediaService.SignedURLTTL().Seconds()),
	})
}
