package programs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ultron-ftp/backend/internal/models"
)

const programColumns = `id, program_name, speaker_name, speaker_designation, start_date, end_date, duration,
	venue, conducting_department, description, max_participants, has_registration_fee, registration_fee,
	upi_id, brochure_url, gallery_photos, report_url, status, created_by, created_at`

// Repository handles program persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a program repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var (
		p      models.Program
		status string
	)
	err := row.Scan(&p.ID, &p.ProgramName, &p.SpeakerName, &p.SpeakerDesignation, &p.StartDate, &p.EndDate,
		&p.Duration, &p.Venue, &p.ConductingDepartment, &p.Description, &p.MaxParticipants,
		&p.HasRegistrationFee, &p.RegistrationFee, &p.UPIID, &p.BrochureURL, &p.GalleryPhotos,
		&p.ReportURL, &status, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	p.Status = models.ProgramStatus(status)
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	if p.GalleryPhotos == nil {
		p.GalleryPhotos = []string{}
	}
	return &p, nil
}

func collect(rows pgx.Rows) ([]models.Program, error) {
	defer rows.Close()
	list := []models.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Create inserts a program. ID and CreatedAt are assigned when zero.
func (r *Repository) Create(ctx context.Context, p *models.Program) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	gallery := p.GalleryPhotos
	if gallery == nil {
		gallery = []string{}
	}
	saved, err := scanProgram(r.pool.QueryRow(ctx, `
		INSERT INTO programs (id, program_name, speaker_name, speaker_designation, start_date, end_date, duration,
			venue, conducting_department, description, max_participants, has_registration_fee, registration_fee,
			upi_id, brochure_url, gallery_photos, report_url, status, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING `+programColumns,
		p.ID, p.ProgramName, p.SpeakerName, p.SpeakerDesignation, p.StartDate.UTC(), p.EndDate.UTC(), p.Duration,
		p.Venue, p.ConductingDepartment, p.Description, p.MaxParticipants, p.HasRegistrationFee, p.RegistrationFee,
		p.UPIID, p.BrochureURL, gallery, p.ReportURL, string(p.Status), p.CreatedBy, p.CreatedAt.UTC()))
	if err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	*p = *saved
	return nil
}

// GetByID returns a program by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	return scanProgram(r.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM programs WHERE id = $1`, id))
}

// ListPublished returns published programs, newest start date first.
func (r *Repository) ListPublished(ctx context.Context) ([]models.Program, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+programColumns+` FROM programs WHERE status = $1 ORDER BY start_date DESC`,
		string(models.ProgramPublished))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// likeEscaper escapes the LIKE metacharacters so a search term matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching q anywhere in a column.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// List returns every program matching q (name, speaker or department), newest first.
// q is matched literally; % and _ carry no wildcard meaning.
func (r *Repository) List(ctx context.Context, q string) ([]models.Program, error) {
	q = strings.TrimSpace(q)
	rows, err := r.pool.Query(ctx, `SELECT `+programColumns+` FROM programs
		WHERE $1 = '' OR program_name ILIKE $2 ESCAPE '\' OR speaker_name ILIKE $2 ESCAPE '\'
		   OR conducting_department ILIKE $2 ESCAPE '\'
		ORDER BY created_at DESC`, q, containsPattern(q))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListRecent returns the most recently created programs.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.Program, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+programColumns+` FROM programs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// UpdateStatus sets a program's status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProgramStatus) error {
	return r.exec(ctx, `UPDATE programs SET status = $2 WHERE id = $1`, id, string(status))
}

// SetBrochureURL records the uploaded brochure.
func (r *Repository) SetBrochureURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.exec(ctx, `UPDATE programs SET brochure_url = $2 WHERE id = $1`, id, url)
}

// AppendGalleryPhotos adds photo URLs to the end of the gallery.
func (r *Repository) AppendGalleryPhotos(ctx context.Context, id uuid.UUID, urls []string) error {
	return r.exec(ctx, `UPDATE programs SET gallery_photos = gallery_photos || $2 WHERE id = $1`, id, urls)
}

// SetReportURL records the uploaded program report.
func (r *Repository) SetReportURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.exec(ctx, `UPDATE programs SET report_url = $2 WHERE id = $1`, id, url)
}

// CountByStatus returns the number of programs per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[models.ProgramStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM programs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[models.ProgramStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[models.ProgramStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *Repository) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
