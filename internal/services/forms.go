package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoginForm is the password login input
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignUpForm is the account registration input
type SignUpForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// OAuthForm selects an OAuth identity provider
type OAuthForm struct {
	Provider string `json:"provider" validate:"required,oneof=google facebook discord"`
}

var fieldMessages = map[string]string{
	"email":   "Invalid email address",
	"min":     "Password must be at least 6 characters long",
	"eqfield": "Passwords don't match",
	"oneof":   "Invalid provider",
}

// newValidator returns a validator that reports json field names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm runs struct validation and flattens failures into per-field messages.
// It returns nil when the form is valid.
func validateForm(v *validator.Validate, form any) map[string]string {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"general": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = fe.Field() + " is required"
		}
		fields[fe.Field()] = msg
	}
	return fields
}
