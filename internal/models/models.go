package models

import "time"

// User represents an account known to the identity provider
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the resolved identity of an authenticated caller
type Session struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Profile holds the couple's display identity and relationship metadata.
// There is at most one profile per user and its ID equals the user ID.
type Profile struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	PartnerName           string    `json:"partner_name"`
	PartnerBirthday       *Date     `json:"partner_birthday"`
	RelationshipStartDate Date      `json:"relationship_start_date"`
	ProfilePhotoURL       *string   `json:"profile_photo_url"`
	IsOnboarded           bool      `json:"isOnboarded"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Moment is a dated memory entry owned by a user
type Moment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	MomentDate  Date      `json:"moment_date"`
	MediaURLs   []string  `json:"media_urls"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActivityBucket is one day of the activity heatmap
type ActivityBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// MediaKind classifies a stored media object for rendering
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindOther MediaKind = "other"
)

// SignedMedia is a short-lived URL for a private media object
type SignedMedia struct {
	URL      string    `json:"url"`
	Type     MediaKind `json:"type"`
	Original string    `json:"original"`
}

// MomentView is a moment together with its resolved media
type MomentView struct {
	*Moment
	Media []SignedMedia `json:"media"`
}

// ProfileView is a profile together with its resolved photo URL
type ProfileView struct {
	*Profile
	PhotoURL string `json:"photo_url,omitempty"`
}
