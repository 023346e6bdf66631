// Package admin serves the administrator dashboard: platform totals, user and program listings,
// the program export and the admin bootstrap.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/auth"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/reports"
	"github.com/ultron-ftp/backend/pkg/response"
)

// RecentPrograms is the number of programs shown on the overview.
const RecentPrograms = 5

// Programs is the program persistence read by the admin views.
type Programs interface {
	List(ctx context.Context, q string) ([]models.Program, error)
	ListRecent(ctx context.Context, limit int) ([]models.Program, error)
	CountByStatus(ctx context.Context) (map[models.ProgramStatus]int, error)
}

// Registrations supplies registration tallies.
type Registrations interface {
	CountsByProgram(ctx context.Context) (map[uuid.UUID]reports.ProgramStats, error)
	Totals(ctx context.Context) (registrations, certificates int, err error)
}

// Users lists accounts with their profiles.
type Users interface {
	ListWithProfiles(ctx context.Context, q string) ([]auth.AdminUser, error)
	Count(ctx context.Context) (int, error)
}

// Bootstrapper ensures the configured admin account exists.
type Bootstrapper interface {
	EnsureAdmin(ctx context.Context, email, password string) (*models.User, error)
}

// Credentials are the configured admin account.
type Credentials struct {
	Email    string
	Password string
}

// Overview is returned by GET /admin/overview.
type Overview struct {
	Users            int                          `json:"users"`
	Programs         int                          `json:"programs"`
	ProgramsByStatus map[models.ProgramStatus]int `json:"programs_by_status"`
	Registrations    int                          `json:"registrations"`
	Certificates     int                          `json:"certificates"`
	Recent           []models.Program             `json:"recent_programs"`
}

// ProgramSummary is a program with its registration tally.
type ProgramSummary struct {
	models.Program
	Stats reports.ProgramStats `json:"stats"`
}

// Handler handles admin endpoints. Every route sits behind middleware.RequireAdmin.
type Handler struct {
	programs      Programs
	registrations Registrations
	users         Users
	bootstrap     Bootstrapper
	creds         Credentials
	logger        *zap.Logger
	now           func() time.Time
}

// NewHandler creates an admin handler.
func NewHandler(programs Programs, registrations Registrations, users Users, bootstrap Bootstrapper, creds Credentials, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		programs:      programs,
		registrations: registrations,
		users:         users,
		bootstrap:     bootstrap,
		creds:         creds,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Overview handles GET /admin/overview.
func (h *Handler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		out Overview
		err error
	)
	if out.Users, err = h.users.Count(ctx); err != nil {
		h.fail(c, "count users failed", err)
		return
	}
	if out.ProgramsByStatus, err = h.programs.CountByStatus(ctx); err != nil {
		h.fail(c, "count programs failed", err)
		return
	}
	for _, n := range out.ProgramsByStatus {
		out.Programs += n
	}
	if out.Registrations, out.Certificates, err = h.registrations.Totals(ctx); err != nil {
		h.fail(c, "count registrations failed", err)
		return
	}
	if out.Recent, err = h.programs.ListRecent(ctx, RecentPrograms); err != nil {
		h.fail(c, "list recent programs failed", err)
		return
	}
	response.OK(c, out)
}

// Users handles GET /admin/users?q=.
func (h *Handler) Users(c *gin.Context) {
	list, err := h.users.ListWithProfiles(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, "list users failed", err)
		return
	}
	response.OK(c, list)
}

// Programs handles GET /admin/programs?q=.
func (h *Handler) Programs(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.programs.List(ctx, c.Query("q"))
	if err != nil {
		h.fail(c, "list programs failed", err)
		return
	}
	counts, err := h.registrations.CountsByProgram(ctx)
	if err != nil {
		h.fail(c, "count registrations failed", err)
		return
	}
	out := make([]ProgramSummary, 0, len(list))
	for _, p := range list {
		out = append(out, ProgramSummary{Program: p, Stats: counts[p.ID]})
	}
	response.OK(c, out)
}

// ProgramsCSV handles GET /admin/reports/programs.csv.
func (h *Handler) ProgramsCSV(c *gin.Context) {
	out, err := ExportPrograms(c.Request.Context(), h.programs, h.registrations)
	if err != nil {
		h.fail(c, "export programs failed", err)
		return
	}
	response.Attachment(c, reports.ProgramsFilename(h.now()), reports.ContentTypeCSV, out)
}

// Bootstrap handles POST /admin/bootstrap with the configured credentials.
func (h *Handler) Bootstrap(c *gin.Context) {
	if h.creds.Email == "" || h.bootstrap == nil {
		response.BadRequest(c, "admin bootstrap is not configured")
		return
	}
	u, err := h.bootstrap.EnsureAdmin(c.Request.Context(), h.creds.Email, h.creds.Password)
	if err != nil {
		h.fail(c, "admin bootstrap failed", err)
		return
	}
	response.OK(c, u.ToPublic())
}

// ExportPrograms renders the platform-wide program export.
func ExportPrograms(ctx context.Context, programs Programs, registrations Registrations) ([]byte, error) {
	list, err := programs.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	counts, err := registrations.CountsByProgram(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	return reports.ProgramsCSV(reports.Rows(list, counts))
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	response.Internal(c, "failed to load admin data")
}
