package repository

import (
	"context"
	"errors"
	"fmt"

	"love-vault-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MomentRepository handles database operations for moments.
// Every query that addresses a single moment filters by both id and user_id.
type MomentRepository struct {
	db *pgxpool.Pool
}

// NewMomentRepository creates a new moment repository
func NewMomentRepository(db *pgxpool.Pool) *MomentRepository {
	return &MomentRepository{db: db}
}

const momentColumns = `id, user_id, title, description, moment_date, media_urls, created_at, updated_at`

// Create creates a new moment
func (r *MomentRepository) Create(ctx context.Context, m *models.Moment) error {
	query := `
		INSERT INTO moments (id, user_id, title, description, moment_date, media_urls)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		m.ID, m.UserID, m.Title, m.Description, m.MomentDate, m.MediaURLs,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create moment: %w", err)
	}
	return nil
}

// GetByID retrieves a moment owned by userID
func (r *MomentRepository) GetByID(ctx context.Context, id, userID string) (*models.Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments WHERE id = $1 AND user_id = $2`
	m, err := scanMoment(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("moment %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get moment: %w", err)
	}
	return m, nil
}

// ListPage retrieves moments newest-created first, rows [offset, offset+limit)
func (r *MomentRepository) ListPage(ctx context.Context, userID string, offset, limit int) ([]*models.Moment, error) {
	query := `
		SELECT ` + momentColumns + `
		FROM moments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list moments: %w", err)
	}
	defer rows.Close()

	moments := make([]*models.Moment, 0, limit)
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moment: %w", err)
		}
		moments = append(moments, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moments: %w", err)
	}

	return moments, nil
}

// ListDatesSince returns the moment_date of every moment on or after since
func (r *MomentRepository) ListDatesSince(ctx context.Context, userID string, since models.Date) ([]models.Date, error) {
	query := `SELECT moment_date FROM moments WHERE user_id = $1 AND moment_date >= $2`
	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list moment dates: %w", err)
	}
	defer rows.Close()

	var dates []models.Date
	for rows.Next() {
		var d models.Date
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan moment date: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moment dates: %w", err)
	}

	return dates, nil
}

// GetMediaURLs returns the media references of a moment owned by userID
func (r *MomentRepository) GetMediaURLs(ctx context.Context, id, userID string) ([]string, error) {
	query := `SELECT media_urls FROM moments WHERE id = $1 AND user_id = $2`
	var urls []string
	if err := r.db.QueryRow(ctx, query, id, userID).Scan(&urls); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("moment %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get moment media: %w", err)
	}
	return urls, nil
}

// Update replaces the editable fields of a moment owned by m.UserID
func (r *MomentRepository) Update(ctx context.Context, m *models.Moment) error {
	query := `
		UPDATE moments
		SET title = $1, description = $2, moment_date = $3, media_urls = $4, updated_at = now()
		WHERE id = $5 AND user_id = $6
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		m.Title, m.Description, m.MomentDate, m.MediaURLs, m.ID, m.UserID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("moment %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to update moment: %w", err)
	}
	return nil
}

// Delete deletes a moment owned by userID
func (r *MomentRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM moments WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete moment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("moment %w", models.ErrNotFound)
	}
	return nil
}

func scanMoment(row pgx.Row) (*models.Moment, error) {
	var m models.Moment
	err := row.Scan(
		&m.ID, &m.UserID, &m.Title, &m.Description, &m.MomentDate,
		&m.MediaURLs, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
