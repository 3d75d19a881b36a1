package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/models"
	"love-vault-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// multipartMemory is how much of a multipart body is buffered before spilling to disk
const multipartMemory = 32 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// respondServiceError maps service errors to HTTP responses. Unknown errors are
// logged and reported with fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: verr.Fields})
	case errors.Is(err, models.ErrProfileNotFound):
		respondError(w, "Profile not found", http.StatusNotFound)
	case errors.Is(err, models.ErrNotFound):
		respondError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, models.ErrOnboardingRequired):
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: "Onboarding required", Redirect: middleware.OnboardingRedirect})
	case errors.Is(err, models.ErrForbiddenPath):
		respondError(w, "Forbidden", http.StatusForbidden)
	default:
		log.Error().
			Err(err).
			Str("user_id", middleware.GetUserID(r.Context())).
			Str("path", r.URL.Path).
			Msg(fallback)
		respondError(w, fallback, http.StatusInternalServerError)
	}
}

// respondActionResult writes one of the auth action variants
func respondActionResult(w http.ResponseWriter, result services.ActionResult) {
	switch res := result.(type) {
	case services.Ok:
		respondJSON(w, http.StatusOK, res)
	case services.FieldError:
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: res.Fields})
	case services.GeneralError:
		respondError(w, res.Message, http.StatusBadRequest)
	default:
		respondError(w, "Unexpected result", http.StatusInternalServerError)
	}
}

// parseMultipart limits the body to maxBytes and parses it as multipart/form-data
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	return r.ParseMultipartForm(multipartMemory)
}

// openUploads opens every file of a multipart field. The returned closer must be
// called once the uploads have been consumed.
func openUploads(form *multipart.Form, field string) ([]services.Upload, func(), error) {
	var (
		uploads []services.Upload
		files   []multipart.File
	)
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	if form == nil {
		return nil, closeAll, nil
	}
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, services.Upload{
			Filename:    fh.Filename,
			ContentType: contentType(fh),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(fh.Filename))); byExt != "" {
		return byExt
	}
	return ct
}

// optionalDate parses a YYYY-MM-DD form value. Empty values yield nil.
func optionalDate(field, value string) (*models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return nil, models.NewValidationError(field, "Invalid date")
	}
	return &d, nil
}
