package services

import (
	"context"
	"time"

	"love-vault-backend/internal/models"
	"love-vault-backend/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// ActivityService builds the per-day moment heatmap for the past year
type ActivityService struct {
	moments MomentStore
	now     func() time.Time
}

// NewActivityService creates a new activity service
func NewActivityService(moments MomentStore) *ActivityService {
	return &ActivityService{
		moments: moments,
		now:     time.Now,
	}
}

// FetchActivity returns one bucket per day from one year ago through today (UTC),
// oldest first. A read failure yields an empty slice.
func (s *ActivityService) FetchActivity(ctx context.Context, userID string) []models.ActivityBucket {
	today := models.NewDate(s.now())
	start := yearBefore(today)

	dates, err := s.moments.ListDatesSince(ctx, userID, start)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch activity")
		telemetry.RecordDegradedRead("activity")
		return []models.ActivityBucket{}
	}

	return BuildActivity(today, dates)
}

// BuildActivity counts dates into a contiguous run of day buckets ending at today.
// Dates outside the window are ignored.
func BuildActivity(today models.Date, dates []models.Date) []models.ActivityBucket {
	start := yearBefore(today)

	counts := make(map[string]int, len(dates))
	for _, d := range dates {
		counts[d.String()]++
	}

	var buckets []models.ActivityBucket
	for d := start; !d.After(today.Time); d = d.AddDays(1) {
		key := d.String()
		count := counts[key]
		buckets = append(buckets, models.ActivityBucket{
			Date:  key,
			Count: count,
			Level: ActivityLevel(count),
		})
	}
	return buckets
}

// ActivityLevel maps a day's moment count to a heat level 0-4
func ActivityLevel(count int) int {
	switch {
	case count <= 0:
		return 0
	case count >= 4:
		return 4
	default:
		return count
	}
}

func yearBefore(d models.Date) models.Date {
	return models.NewDate(d.AddDate(-1, 0, 0))
}
