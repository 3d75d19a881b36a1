package services

import (
	"context"
	"time"

	"love-vault-backend/internal/models"
)

// UserStore is the persistence contract for identity accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProfileStore is the persistence contract for profiles
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	UpdateDetails(ctx context.Context, p *models.Profile) error
	SetPhoto(ctx context.Context, id string, ref *string) error
}

// MomentStore is the persistence contract for moments. Every method that addresses
// a single moment takes both the moment id and the owner's user id.
type MomentStore interface {
	Create(ctx context.Context, m *models.Moment) error
	GetByID(ctx context.Context, id, userID string) (*models.Moment, error)
	ListPage(ctx context.Context, userID string, offset, limit int) ([]*models.Moment, error)
	ListDatesSince(ctx context.Context, userID string, since models.Date) ([]models.Date, error)
	GetMediaURLs(ctx context.Context, id, userID string) ([]string, error)
	Update(ctx context.Context, m *models.Moment) error
	Delete(ctx context.Context, id, userID string) error
}

// TokenRevoker tracks signed-out session tokens and consumed OAuth states
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeOnce revokes tokenID and reports whether this call was the first to do so
	RevokeOnce(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

// EventPublisher fans change notifications out to a user's open sessions
type EventPublisher interface {
	Publish(userID string, event Event)
}

// Event is a change notification pushed to connected clients
type Event struct {
	Type      string `json:"type"`
	MomentID  string `json:"moment_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Event types
const (
	EventMomentCreated  = "moment_created"
	EventMomentUpdated  = "moment_updated"
	EventMomentDeleted  = "moment_deleted"
	EventProfileUpdated = "profile_updated"
)

type noopPublisher struct{}

func (noopPublisher) Publish(string, Event) {}
