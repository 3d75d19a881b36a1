package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"love-vault-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ProfileService handles onboarding and profile settings
type ProfileService struct {
	profiles  ProfileStore
	media     *MediaService
	publisher EventPublisher
	now       func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, media *MediaService, publisher EventPublisher) *ProfileService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ProfileService{
		profiles:  profiles,
		media:     media,
		publisher: publisher,
		now:       time.Now,
	}
}

// Get returns the caller's profile. It returns ErrProfileNotFound when none exists.
// Any other read failure is logged and reported as a nil profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile")
		return nil, nil
	}
	return p, nil
}

// View returns the profile with its photo resolved to a fetchable URL
func (s *ProfileService) View(ctx context.Context, userID string) (*models.ProfileView, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &models.ProfileView{
		Profile:  p,
		PhotoURL: s.media.PhotoURL(ctx, p),
	}, nil
}

// RequireOnboarded returns nil only when the caller has a completed profile
func (s *ProfileService) RequireOnboarded(ctx context.Context, userID string) error {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !p.IsOnboarded {
		return models.ErrOnboardingRequired
	}
	return nil
}

// CompleteOnboarding stores the wizard's result and marks the profile onboarded.
// Repeating it overwrites the same row.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, session *models.Session, in ProfileInput) (*models.Profile, error) {
	if err := validateProfile(in); err != nil {
		return nil, err
	}

	p := &models.Profile{
		ID:                    session.UserID,
		Username:              strings.TrimSpace(in.Username),
		Email:                 session.Email,
		PartnerName:           strings.TrimSpace(in.PartnerName),
		PartnerBirthday:       in.PartnerBirthday,
		RelationshipStartDate: *in.RelationshipStartDate,
		IsOnboarded:           true,
	}

	if in.Photo != nil {
		key, err := s.media.UploadProfilePhoto(ctx, session.UserID, *in.Photo)
		if err != nil {
			return nil, err
		}
		p.ProfilePhotoURL = &key
	}

	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", session.UserID).Msg("Onboarding completed")
	s.publish(session.UserID)
	return p, nil
}

// UpdateSettings edits the profile's details. The photo is managed separately.
func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	if err := validateProfile(in); err != nil {
		return nil, err
	}

	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Username = strings.TrimSpace(in.Username)
	p.PartnerName = strings.TrimSpace(in.PartnerName)
	p.PartnerBirthday = in.PartnerBirthday
	p.RelationshipStartDate = *in.RelationshipStartDate

	if err := s.profiles.UpdateDetails(ctx, p); err != nil {
		return nil, err
	}

	s.publish(userID)
	return p, nil
}

// ReplacePhoto uploads a new profile photo into the user's fixed slot
func (s *ProfileService) ReplacePhoto(ctx context.Context, userID string, photo Upload) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := s.media.UploadProfilePhoto(ctx, userID, photo)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.SetPhoto(ctx, userID, &key); err != nil {
		return nil, err
	}
	p.ProfilePhotoURL = &key

	s.publish(userID)
	return p, nil
}

// RemovePhoto clears the profile photo reference, then removes the stored object.
// Storage failures are logged only.
func (s *ProfileService) RemovePhoto(ctx context.Context, userID string) error {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if p.ProfilePhotoURL == nil {
		return nil
	}

	if err := s.profiles.SetPhoto(ctx, userID, nil); err != nil {
		return err
	}
	s.media.RemoveProfilePhoto(ctx, *p.ProfilePhotoURL)

	s.publish(userID)
	return nil
}

func (s *ProfileService) publish(userID string) {
	s.publisher.Publish(userID, Event{
		Type:      EventProfileUpdated,
		Timestamp: s.now().UnixMilli(),
	})
}
