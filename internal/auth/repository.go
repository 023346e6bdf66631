package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ultron-ftp/backend/internal/models"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, display_name, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string) (*models.User, error) {
	now := time.Now().UTC()
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+userColumns,
		uuid.New(), normalizeEmail(email), passwordHash, strings.TrimSpace(displayName), now))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// SetPassword replaces a user's password hash.
func (r *Repository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	return err
}

// AdminUser is a user row joined with its optional profile for the admin listing.
type AdminUser struct {
	models.UserPublic
	Profile *models.Profile `json:"profile,omitempty"`
}

// ListWithProfiles returns users with their profiles, optionally filtered by a case-insensitive
// search over email, display name, profile name, department and staff code.
func (r *Repository) ListWithProfiles(ctx context.Context, q string) ([]AdminUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.display_name, u.created_at,
		       p.user_id, COALESCE(p.name,''), COALESCE(p.department,''), COALESCE(p.staff_code,''),
		       COALESCE(p.phone,''), COALESCE(p.photo_url,''), COALESCE(p.areas_of_interest,'{}'),
		       COALESCE(p.role,'user'), p.created_at, p.updated_at
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		WHERE $1 = '' OR u.email ILIKE '%' || $1 || '%' OR u.display_name ILIKE '%' || $1 || '%'
		   OR p.name ILIKE '%' || $1 || '%' OR p.department ILIKE '%' || $1 || '%'
		   OR p.staff_code ILIKE '%' || $1 || '%'
		ORDER BY u.created_at DESC`, strings.TrimSpace(q))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AdminUser
	for rows.Next() {
		var (
			u          AdminUser
			p          models.Profile
			profileID  *uuid.UUID
			role       string
			pCreatedAt *time.Time
			pUpdatedAt *time.Time
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt,
			&profileID, &p.Name, &p.Department, &p.StaffCode, &p.Phone, &p.PhotoURL, &p.AreasOfInterest,
			&role, &pCreatedAt, &pUpdatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		if profileID != nil {
			p.UserID = *profileID
			p.Role = models.Role(role)
			if pCreatedAt != nil {
				p.CreatedAt = pCreatedAt.UTC()
			}
			if pUpdatedAt != nil {
				p.UpdatedAt = pUpdatedAt.UTC()
			}
			u.Profile = &p
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
