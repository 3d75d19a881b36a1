package services

import (
	"context"

	"love-vault-backend/internal/models"
	"love-vault-backend/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// TimelinePage is one page of the infinite-scroll moment feed
type TimelinePage struct {
	Moments    []models.MomentView `json:"moments"`
	NextOffset int                 `json:"next_offset"`
	HasMore    bool                `json:"has_more"`
}

// TimelineService pages through a user's moments newest-created first
type TimelineService struct {
	moments  MomentStore
	media    *MediaService
	pageSize int
}

// NewTimelineService creates a new timeline service
func NewTimelineService(moments MomentStore, media *MediaService, pageSize int) *TimelineService {
	return &TimelineService{
		moments:  moments,
		media:    media,
		pageSize: pageSize,
	}
}

// PageSize is the number of moments per page
func (s *TimelineService) PageSize() int {
	return s.pageSize
}

// FetchPage returns at most PageSize moments starting at offset. A read failure
// yields an empty page.
func (s *TimelineService) FetchPage(ctx context.Context, userID string, offset int) []*models.Moment {
	if offset < 0 {
		offset = 0
	}

	moments, err := s.moments.ListPage(ctx, userID, offset, s.pageSize)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Int("offset", offset).
			Msg("Failed to fetch timeline page")
		telemetry.RecordDegradedRead("timeline")
		return []*models.Moment{}
	}
	return moments
}

// Page fetches a page and resolves media URLs for each moment. HasMore is true
// while the page came back full.
func (s *TimelineService) Page(ctx context.Context, userID string, offset int) TimelinePage {
	if offset < 0 {
		offset = 0
	}
	moments := s.FetchPage(ctx, userID, offset)

	views := make([]models.MomentView, 0, len(moments))
	for _, m := range moments {
		views = append(views, models.MomentView{
			Moment: m,
			Media:  s.media.SignMomentMedia(ctx, m),
		})
	}

	return TimelinePage{
		Moments:    views,
		NextOffset: offset + len(moments),
		HasMore:    len(moments) == s.pageSize,
	}
}
