package services

import "time"

// ActionResult is the outcome of an authentication action. It is one of
// Ok, FieldError or GeneralError.
type ActionResult interface {
	isActionResult()
}

// Ok reports a successful action
type Ok struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Redirect  string    `json:"redirect,omitempty"`
}

// FieldError reports input validation failures keyed by form field
type FieldError struct {
	Fields map[string]string `json:"fields"`
}

// GeneralError reports a failure not tied to a single field
type GeneralError struct {
	Message string `json:"error"`
}

func (Ok) isActionResult()           {}
func (FieldError) isActionResult()   {}
func (GeneralError) isActionResult() {}
