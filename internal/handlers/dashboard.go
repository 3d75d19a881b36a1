package handlers

import (
	"net/http"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/services"
)

// DashboardHandler serves the activity heatmap
type DashboardHandler struct {
	activityService *services.ActivityService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(activityService *services.ActivityService) *DashboardHandler {
	return &DashboardHandler{activityService: activityService}
}

// GetActivity handles GET /api/v1/activity
func (h *DashboardHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	buckets := h.activityService.FetchActivity(r.Context(), middleware.GetUserID(r.Context()))
	respondJSON(w, http.StatusOK, buckets)
}
