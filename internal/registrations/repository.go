package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/reports"
)

const registrationColumns = `id, program_id, user_id, user_name, user_department, user_staff_code, user_phone,
	transaction_id, willingness_confirmed, registered_at, attendance_status, certificate_generated,
	completion_date, certificate_key`

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRegistration(row pgx.Row, extra ...interface{}) (*models.Registration, error) {
	var (
		reg    models.Registration
		status string
	)
	dest := []interface{}{&reg.ID, &reg.ProgramID, &reg.UserID, &reg.UserName, &reg.UserDepartment,
		&reg.UserStaffCode, &reg.UserPhone, &reg.TransactionID, &reg.WillingnessConfirmed, &reg.RegisteredAt,
		&status, &reg.CertificateGenerated, &reg.CompletionDate, &reg.CertificateKey}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	reg.AttendanceStatus = models.AttendanceStatus(status)
	reg.RegisteredAt = reg.RegisteredAt.UTC()
	if reg.CompletionDate != nil {
		t := reg.CompletionDate.UTC()
		reg.CompletionDate = &t
	}
	return &reg, nil
}

func collect(rows pgx.Rows) ([]models.Registration, error) {
	defer rows.Close()
	list := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// Create inserts a registration. The caller sets ID and RegisteredAt.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, program_id, user_id, user_name, user_department, user_staff_code,
		user_phone, transaction_id, willingness_confirmed, registered_at, attendance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, q, reg.ID, reg.ProgramID, reg.UserID, reg.UserName, reg.UserDepartment,
		reg.UserStaffCode, reg.UserPhone, reg.TransactionID, reg.WillingnessConfirmed, reg.RegisteredAt,
		string(reg.AttendanceStatus))
	return err
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
}

// ListByUser returns a user's registrations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations
		WHERE user_id = $1 ORDER BY registered_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByProgram returns a program's registrations in registration order.
func (r *Repository) ListByProgram(ctx context.Context, programID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registrationColumns+` FROM registrations
		WHERE program_id = $1 ORDER BY registered_at ASC`, programID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// CountByProgram returns the number of registrations for a program.
func (r *Repository) CountByProgram(ctx context.Context, programID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE program_id = $1`, programID).Scan(&n)
	return n, err
}

// Exists reports whether the user already holds a registration for the program.
func (r *Repository) Exists(ctx context.Context, programID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE program_id = $1 AND user_id = $2)`,
		programID, userID).Scan(&ok)
	return ok, err
}

// MarkAttended moves a registration from registered to attended.
func (r *Repository) MarkAttended(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET attendance_status = 'attended'
		WHERE id = $1 AND attendance_status = 'registered'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted moves an attended registration to completed. The prior certificate flag is read
// under a row lock so concurrent callers agree on which of them issues the certificate.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, completedOn time.Time) (*models.Registration, bool, error) {
	const q = `WITH prev AS (
			SELECT id, certificate_generated FROM registrations
			WHERE id = $1 AND attendance_status = 'attended'
			FOR UPDATE
		)
		UPDATE registrations r SET
			attendance_status = 'completed',
			certificate_generated = TRUE,
			completion_date = COALESCE(r.completion_date, $2)
		FROM prev
		WHERE r.id = prev.id
		RETURNING r.id, r.program_id, r.user_id, r.user_name, r.user_department, r.user_staff_code, r.user_phone,
			r.transaction_id, r.willingness_confirmed, r.registered_at, r.attendance_status, r.certificate_generated,
			r.completion_date, r.certificate_key, prev.certificate_generated`
	var wasGenerated bool
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id, completedOn.UTC()), &wasGenerated)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("complete registration: %w", err)
	}
	return reg, !wasGenerated, nil
}

// SetCertificateKey records where the registration's certificate is archived.
func (r *Repository) SetCertificateKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET certificate_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountsByProgram returns registration tallies keyed by program id.
func (r *Repository) CountsByProgram(ctx context.Context) (map[uuid.UUID]reports.ProgramStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT program_id, COUNT(*),
		COUNT(*) FILTER (WHERE attendance_status = 'attended'),
		COUNT(*) FILTER (WHERE attendance_status = 'completed')
		FROM registrations GROUP BY program_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]reports.ProgramStats)
	for rows.Next() {
		var (
			id uuid.UUID
			s  reports.ProgramStats
		)
		if err := rows.Scan(&id, &s.Registered, &s.Attended, &s.Completed); err != nil {
			return nil, err
		}
		s.CompletionRate = reports.CompletionRate(s.Completed, s.Registered)
		out[id] = s
	}
	return out, rows.Err()
}

// Totals returns platform-wide registration and certificate counts.
func (r *Repository) Totals(ctx context.Context) (registrations, certificates int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE certificate_generated)
		FROM registrations`).Scan(&registrations, &certificates)
	return registrations, certificates, err
}
