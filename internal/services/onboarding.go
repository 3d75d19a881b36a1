package services

import (
	"strings"

	"love-vault-backend/internal/models"
)

// OnboardingStep is a position in the onboarding wizard
type OnboardingStep int

// Wizard steps in order
const (
	StepUsername OnboardingStep = iota + 1
	StepPartner
	StepRelationshipDate
	StepPhoto
)

// ProfileInput carries the profile fields collected by onboarding and settings
type ProfileInput struct {
	Username              string
	PartnerName           string
	PartnerBirthday       *models.Date
	RelationshipStartDate *models.Date
	Photo                 *Upload
}

// CanProceed reports whether the wizard may advance past step. The photo step is optional.
func CanProceed(step OnboardingStep, in ProfileInput) bool {
	switch step {
	case StepUsername:
		return strings.TrimSpace(in.Username) != ""
	case StepPartner:
		return strings.TrimSpace(in.PartnerName) != ""
	case StepRelationshipDate:
		return in.RelationshipStartDate != nil && !in.RelationshipStartDate.IsZero()
	case StepPhoto:
		return true
	default:
		return false
	}
}

// validateProfile checks every required step and reports the failing fields
func validateProfile(in ProfileInput) error {
	fields := map[string]string{}
	if !CanProceed(StepUsername, in) {
		fields["username"] = "Username is required"
	}
	if !CanProceed(StepPartner, in) {
		fields["partner_name"] = "Partner name is required"
	}
	if !CanProceed(StepRelationshipDate, in) {
		fields["relationship_start_date"] = "Relationship start date is required"
	}
	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}
