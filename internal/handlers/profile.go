package handlers

import (
	"encoding/json"
	"net/http"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/models"
	"love-vault-backend/internal/services"
)

// ProfileHandler handles onboarding and profile settings requests
type ProfileHandler struct {
	profileService *services.ProfileService
	maxUpload      int64
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService, maxUpload int64) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		maxUpload:      maxUpload,
	}
}

type profileRequest struct {
	Username              string       `json:"username"`
	PartnerName           string       `json:"partner_name"`
	PartnerBirthday       *models.Date `json:"partner_birthday"`
	RelationshipStartDate *models.Date `json:"relationship_start_date"`
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.profileService.View(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get profile")
		return
	}
	if view == nil {
		respondError(w, "Profile unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Onboard handles POST /api/v1/onboarding
func (h *ProfileHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	in, err := profileInputFromForm(r)
	if err != nil {
		respondServiceError(w, r, err, "Failed to complete onboarding")
		return
	}

	photos, closePhotos, err := openUploads(r.MultipartForm, "photo")
	if err != nil {
		respondError(w, "Failed to read photo", http.StatusBadRequest)
		return
	}
	defer closePhotos()
	if len(photos) > 0 {
		in.Photo = &photos[0]
	}

	profile, err := h.profileService.CompleteOnboarding(r.Context(), session, in)
	if err != nil {
		respondServiceError(w, r, err, "Failed to complete onboarding")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.UpdateSettings(r.Context(), middleware.GetUserID(r.Context()), services.ProfileInput{
		Username:              req.Username,
		PartnerName:           req.PartnerName,
		PartnerBirthday:       req.PartnerBirthday,
		RelationshipStartDate: req.RelationshipStartDate,
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// ReplacePhoto handles PUT /api/v1/profile/photo
func (h *ProfileHandler) ReplacePhoto(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	photos, closePhotos, err := openUploads(r.MultipartForm, "photo")
	if err != nil {
		respondError(w, "Failed to read photo", http.StatusBadRequest)
		return
	}
	defer closePhotos()
	if len(photos) == 0 {
		respondError(w, "photo is required", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.ReplacePhoto(r.Context(), middleware.GetUserID(r.Context()), photos[0])
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile photo")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// RemovePhoto handles DELETE /api/v1/profile/photo
func (h *ProfileHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.profileService.RemovePhoto(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, r, err, "Failed to remove profile photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func profileInputFromForm(r *http.Request) (services.ProfileInput, error) {
	in := services.ProfileInput{
		Username:    r.FormValue("username"),
		PartnerName: r.FormValue("partner_name"),
	}

	birthday, err := optionalDate("partner_birthday", r.FormValue("partner_birthday"))
	if err != nil {
		return in, err
	}
	in.PartnerBirthday = birthday

	start, err := optionalDate("relationship_start_date", r.FormValue("relationship_start_date"))
	if err != nil {
		return in, err
	}
	in.RelationshipStartDate = start

	return in, nil
}
