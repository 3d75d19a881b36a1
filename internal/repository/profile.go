package repository

import (
	"context"
	"errors"
	"fmt"

	"love-vault-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves the profile whose id equals the user id
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, username, email, partner_name, partner_birthday, relationship_start_date,
		       profile_photo_url, "isOnboarded", created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p models.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Username, &p.Email, &p.PartnerName, &p.PartnerBirthday,
		&p.RelationshipStartDate, &p.ProfilePhotoURL, &p.IsOnboarded,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Upsert inserts the profile or replaces every field of an existing one
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, username, email, partner_name, partner_birthday,
		                      relationship_start_date, profile_photo_url, "isOnboarded")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			partner_name = EXCLUDED.partner_name,
			partner_birthday = EXCLUDED.partner_birthday,
			relationship_start_date = EXCLUDED.relationship_start_date,
			profile_photo_url = COALESCE(EXCLUDED.profile_photo_url, profiles.profile_photo_url),
			"isOnboarded" = EXCLUDED."isOnboarded",
			updated_at = now()
		RETURNING profile_photo_url, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Username, p.Email, p.PartnerName, p.PartnerBirthday,
		p.RelationshipStartDate, p.ProfilePhotoURL, p.IsOnboarded,
	).Scan(&p.ProfilePhotoURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// UpdateDetails updates the settings-editable fields of a profile
func (r *ProfileRepository) UpdateDetails(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles
		SET username = $1, partner_name = $2, partner_birthday = $3,
		    relationship_start_date = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.Username, p.PartnerName, p.PartnerBirthday, p.RelationshipStartDate, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrProfileNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// SetPhoto sets or clears the profile photo reference
func (r *ProfileRepository) SetPhoto(ctx context.Context, id string, ref *string) error {
	query := `UPDATE profiles SET profile_photo_url = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, ref, id)
	if err != nil {
		return fmt.Errorf("failed to update profile photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}
