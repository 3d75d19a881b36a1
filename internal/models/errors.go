package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a row is absent or owned by another user
	ErrNotFound = errors.New("not found")
	// ErrProfileNotFound is returned when the caller has no profile yet
	ErrProfileNotFound = errors.New("profile not found")
	// ErrOnboardingRequired is returned when the profile exists but onboarding is incomplete
	ErrOnboardingRequired = errors.New("onboarding required")
	// ErrInvalidSession is returned for missing, expired or revoked session tokens
	ErrInvalidSession = errors.New("invalid session")
	// ErrForbiddenPath is returned when a storage path lies outside the caller's prefix
	ErrForbiddenPath = errors.New("path does not belong to user")
	// ErrUnsupportedMedia is returned for uploads that are neither images nor videos
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// ValidationError reports per-field input problems found before any store call
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
