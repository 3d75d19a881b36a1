package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"love-vault-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MomentInput carries the editable fields of a moment
type MomentInput struct {
	Title       string
	Description string
	MomentDate  *models.Date
	Files       []Upload
	// KeepMedia lists existing references that survive an update. Ignored on create.
	KeepMedia []string
}

// DeleteResult reports what happened to a deleted moment's media
type DeleteResult struct {
	MediaAttempted int
	MediaFailed    []string
}

// MomentService handles moment business logic
type MomentService struct {
	moments   MomentStore
	media     *MediaService
	publisher EventPublisher
	now       func() time.Time
}

// NewMomentService creates a new moment service
func NewMomentService(moments MomentStore, media *MediaService, publisher EventPublisher) *MomentService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &MomentService{
		moments:   moments,
		media:     media,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates input, uploads media and stores a new moment. Nothing is
// written or uploaded when the title is blank.
func (s *MomentService) Create(ctx context.Context, userID string, in MomentInput) (*models.Moment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("title", "Title is required")
	}

	keys, err := s.media.UploadMomentMedia(ctx, userID, in.Files)
	if err != nil {
		return nil, err
	}

	m := &models.Moment{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: optionalText(in.Description),
		MomentDate:  s.dateOrToday(in.MomentDate),
		MediaURLs:   keys,
	}
	if m.MediaURLs == nil {
		m.MediaURLs = []string{}
	}

	if err := s.moments.Create(ctx, m); err != nil {
		s.media.RemoveMomentMedia(context.WithoutCancel(ctx), keys)
		return nil, err
	}

	log.Info().
		Str("moment_id", m.ID).
		Str("user_id", userID).
		Int("media", len(keys)).
		Msg("Moment created")

	s.publish(userID, EventMomentCreated, m.ID)
	return m, nil
}

// Get retrieves a moment owned by userID together with signed media URLs
func (s *MomentService) Get(ctx context.Context, userID, id string) (*models.MomentView, error) {
	m, err := s.moments.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &models.MomentView{
		Moment: m,
		Media:  s.media.SignMomentMedia(ctx, m),
	}, nil
}

// Update replaces a moment's fields. Existing media not listed in KeepMedia is
// removed from storage once the row update has succeeded.
func (s *MomentService) Update(ctx context.Context, userID, id string, in MomentInput) (*models.Moment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("title", "Title is required")
	}

	current, err := s.moments.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var kept, dropped []string
	for _, ref := range current.MediaURLs {
		if slices.Contains(in.KeepMedia, ref) {
			kept = append(kept, ref)
		} else {
			dropped = append(dropped, ref)
		}
	}

	if s.media.maxFiles > 0 && len(kept)+len(in.Files) > s.media.maxFiles {
		return nil, models.NewValidationError("files", fmt.Sprintf("At most %d files per moment", s.media.maxFiles))
	}

	added, err := s.media.UploadMomentMedia(ctx, userID, in.Files)
	if err != nil {
		return nil, err
	}

	updated := &models.Moment{
		ID:          current.ID,
		UserID:      userID,
		Title:       title,
		Description: optionalText(in.Description),
		MomentDate:  current.MomentDate,
		MediaURLs:   append(append([]string{}, kept...), added...),
	}
	if in.MomentDate != nil {
		updated.MomentDate = *in.MomentDate
	}

	if err := s.moments.Update(ctx, updated); err != nil {
		s.media.RemoveMomentMedia(context.WithoutCancel(ctx), added)
		return nil, err
	}

	if len(dropped) > 0 {
		s.media.RemoveMomentMedia(ctx, dropped)
	}

	log.Info().
		Str("moment_id", id).
		Str("user_id", userID).
		Int("added", len(added)).
		Int("removed", len(dropped)).
		Msg("Moment updated")

	s.publish(userID, EventMomentUpdated, id)
	return updated, nil
}

// Delete removes a moment and makes a best-effort attempt to remove all of its
// media. Storage failures never prevent the row from being deleted.
func (s *MomentService) Delete(ctx context.Context, userID, id string) (*DeleteResult, error) {
	refs, err := s.moments.GetMediaURLs(ctx, id, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("moment_id", id).Msg("Failed to read moment media before delete")
		refs = nil
	}

	result := &DeleteResult{}
	for _, ref := range refs {
		if ref != "" {
			result.MediaAttempted++
		}
	}
	if result.MediaAttempted > 0 {
		result.MediaFailed = s.media.RemoveMomentMedia(ctx, refs)
	}

	if err := s.moments.Delete(ctx, id, userID); err != nil {
		return nil, err
	}

	log.Info().
		Str("moment_id", id).
		Str("user_id", userID).
		Int("media_attempted", result.MediaAttempted).
		Int("media_failed", len(result.MediaFailed)).
		Msg("Moment deleted")

	s.publish(userID, EventMomentDeleted, id)
	return result, nil
}

func (s *MomentService) dateOrToday(d *models.Date) models.Date {
	if d != nil && !d.IsZero() {
		return *d
	}
	return models.NewDate(s.now())
}

func (s *MomentService) publish(userID, eventType, momentID string) {
	s.publisher.Publish(userID, Event{
		Type:      eventType,
		MomentID:  momentID,
		Timestamp: s.now().UnixMilli(),
	})
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
