package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/models"
	"love-vault-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MomentHandler handles moment and timeline requests
type MomentHandler struct {
	momentService   *services.MomentService
	timelineService *services.TimelineService
	maxUpload       int64
}

// NewMomentHandler creates a new moment handler
func NewMomentHandler(momentService *services.MomentService, timelineService *services.TimelineService, maxUpload int64) *MomentHandler {
	return &MomentHandler{
		momentService:   momentService,
		timelineService: timelineService,
		maxUpload:       maxUpload,
	}
}

// DeleteResponse is the outcome of a moment deletion
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListMoments handles GET /api/v1/moments
func (h *MomentHandler) ListMoments(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			respondError(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	page := h.timelineService.Page(r.Context(), middleware.GetUserID(r.Context()), offset)
	respondJSON(w, http.StatusOK, page)
}

// CreateMoment handles POST /api/v1/moments
func (h *MomentHandler) CreateMoment(w http.ResponseWriter, r *http.Request) {
	in, cleanup, ok := h.momentInput(w, r)
	if !ok {
		return
	}
	defer cleanup()

	moment, err := h.momentService.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create moment")
		return
	}

	respondJSON(w, http.StatusCreated, moment)
}

// GetMoment handles GET /api/v1/moments/{id}
func (h *MomentHandler) GetMoment(w http.ResponseWriter, r *http.Request) {
	id, ok := momentID(w, r)
	if !ok {
		return
	}

	view, err := h.momentService.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get moment")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// UpdateMoment handles PUT /api/v1/moments/{id}
func (h *MomentHandler) UpdateMoment(w http.ResponseWriter, r *http.Request) {
	id, ok := momentID(w, r)
	if !ok {
		return
	}

	in, cleanup, ok := h.momentInput(w, r)
	if !ok {
		return
	}
	defer cleanup()
	in.KeepMedia = r.MultipartForm.Value["existing_media"]

	moment, err := h.momentService.Update(r.Context(), middleware.GetUserID(r.Context()), id, in)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update moment")
		return
	}

	respondJSON(w, http.StatusOK, moment)
}

// DeleteMoment handles DELETE /api/v1/moments/{id}
func (h *MomentHandler) DeleteMoment(w http.ResponseWriter, r *http.Request) {
	id, ok := momentID(w, r)
	if !ok {
		return
	}

	result, err := h.momentService.Delete(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to delete moment"
		if errors.Is(err, models.ErrNotFound) {
			status = http.StatusNotFound
			message = "Moment not found"
		}
		respondJSON(w, status, DeleteResponse{Success: false, Message: message})
		return
	}

	message := "Moment deleted successfully"
	if len(result.MediaFailed) > 0 {
		message = "Moment deleted, some media could not be removed"
	}
	respondJSON(w, http.StatusOK, DeleteResponse{Success: true, Message: message})
}

// momentInput parses the multipart body shared by create and update
func (h *MomentHandler) momentInput(w http.ResponseWriter, r *http.Request) (services.MomentInput, func(), bool) {
	noop := func() {}
	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return services.MomentInput{}, noop, false
	}

	date, err := optionalDate("moment_date", r.FormValue("moment_date"))
	if err != nil {
		respondServiceError(w, r, err, "Invalid moment")
		return services.MomentInput{}, noop, false
	}

	files, closeFiles, err := openUploads(r.MultipartForm, "files")
	if err != nil {
		respondError(w, "Failed to read files", http.StatusBadRequest)
		return services.MomentInput{}, noop, false
	}

	return services.MomentInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		MomentDate:  date,
		Files:       files,
	}, closeFiles, true
}

// momentID reads the {id} URL parameter. Malformed ids are reported as not found.
func momentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, "Moment not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}
