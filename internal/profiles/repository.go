package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ultron-ftp/backend/internal/models"
)

const profileColumns = `user_id, name, department, staff_code, phone, photo_url, areas_of_interest, role, created_at, updated_at`

// Repository handles profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profile repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	err := row.Scan(&p.UserID, &p.Name, &p.Department, &p.StaffCode, &p.Phone, &p.PhotoURL,
		&p.AreasOfInterest, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	p.Role = models.Role(role)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.AreasOfInterest == nil {
		p.AreasOfInterest = []string{}
	}
	return &p, nil
}

// Get returns the profile of userID.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

// Upsert creates or replaces a profile. created_at is kept on update; an empty photo_url
// keeps the stored photo.
func (r *Repository) Upsert(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	areas := p.AreasOfInterest
	if areas == nil {
		areas = []string{}
	}
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	saved, err := scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, name, department, staff_code, phone, photo_url, areas_of_interest, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			staff_code = EXCLUDED.staff_code,
			phone = EXCLUDED.phone,
			photo_url = COALESCE(NULLIF(EXCLUDED.photo_url, ''), profiles.photo_url),
			areas_of_interest = EXCLUDED.areas_of_interest,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		p.UserID, p.Name, p.Department, p.StaffCode, p.Phone, p.PhotoURL, areas, string(role), now))
	if err != nil {
		return err
	}
	*p = *saved
	return nil
}

// SetPhotoURL records the uploaded profile photo.
func (r *Repository) SetPhotoURL(ctx context.Context, userID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET photo_url = $2, updated_at = NOW() WHERE user_id = $1`, userID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of saved profiles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}
