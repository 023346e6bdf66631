package registrations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/lifecycle"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/programs"
	"github.com/ultron-ftp/backend/internal/reports"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
	"github.com/ultron-ftp/backend/pkg/storage"
)

// Store is the registration persistence read by the handler. Writes go through the lifecycle.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	ListByProgram(ctx context.Context, programID uuid.UUID) ([]models.Registration, error)
}

// Lifecycle applies registration state changes.
type Lifecycle interface {
	Register(ctx context.Context, in lifecycle.RegisterInput) (*models.Registration, error)
	Transition(ctx context.Context, id uuid.UUID, target models.AttendanceStatus) (*models.Registration, error)
	Sweep(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Registration, error)
}

// Catalog lists the programs open to participants.
type Catalog interface {
	Published(ctx context.Context) ([]models.Program, error)
}

// CertificateLinker presigns downloads of archived certificates.
type CertificateLinker interface {
	CertificateDownloadURL(ctx context.Context, key, filename string) (string, error)
}

// RegisterRequest is the body for POST /programs/:id/registrations.
type RegisterRequest struct {
	WillingnessConfirmed bool   `json:"willingness_confirmed"`
	TransactionID        string `json:"transaction_id"`
}

// AttendanceRequest is the body for POST /registrations/:id/attendance.
type AttendanceRequest struct {
	Status models.AttendanceStatus `json:"status"`
}

// DashboardResponse is returned by GET /dashboard.
type DashboardResponse struct {
	Programs       []models.Program      `json:"programs"`
	Registrations  []models.Registration `json:"registrations"`
	NewlyCompleted []uuid.UUID           `json:"newly_completed"`
	Stats          reports.UserStats     `json:"stats"`
}

// Handler handles registration, attendance and certificate endpoints.
type Handler struct {
	store     Store
	programs  programs.Getter
	catalog   Catalog
	lifecycle Lifecycle
	renderer  *certificate.Renderer
	links     CertificateLinker
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a registrations handler. links may be nil when certificates are not archived.
func NewHandler(store Store, progs programs.Getter, catalog Catalog, lc Lifecycle, renderer *certificate.Renderer,
	links CertificateLinker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = certificate.NewRenderer()
	}
	return &Handler{
		store:     store,
		programs:  progs,
		catalog:   catalog,
		lifecycle: lc,
		renderer:  renderer,
		links:     links,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register handles POST /programs/:id/registrations for the session user.
func (h *Handler) Register(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	sess := session.From(c)
	reg, err := h.lifecycle.Register(c.Request.Context(), lifecycle.RegisterInput{
		Profile:              sess.Profile,
		ProgramID:            programID,
		TransactionID:        req.TransactionID,
		WillingnessConfirmed: req.WillingnessConfirmed,
	})
	if err != nil {
		h.lifecycleError(c, err, "failed to register", zap.String("program_id", programID.String()))
		return
	}
	response.Created(c, reg)
}

// Mine handles GET /me/registrations.
func (h *Handler) Mine(c *gin.Context) {
	sess := session.From(c)
	list, err := h.store.ListByUser(c.Request.Context(), sess.UserID())
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("user_id", sess.UserID().String()))
		response.Internal(c, "failed to load registrations")
		return
	}
	response.OK(c, list)
}

// Dashboard handles GET /dashboard. It first completes any attended registrations whose program
// has ended, then returns the catalog, the user's registrations and their counters.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.From(c)
	now := h.now()

	completed, err := h.lifecycle.Sweep(ctx, sess.UserID(), now)
	if err != nil {
		h.logger.Warn("dashboard sweep failed", zap.Error(err), zap.String("user_id", sess.UserID().String()))
	}
	regs, err := h.store.ListByUser(ctx, sess.UserID())
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("user_id", sess.UserID().String()))
		response.Internal(c, "failed to load dashboard")
		return
	}
	published, err := h.catalog.Published(ctx)
	if err != nil {
		h.logger.Error("list programs failed", zap.Error(err))
		response.Internal(c, "failed to load dashboard")
		return
	}
	ids := make([]uuid.UUID, 0, len(completed))
	for _, r := range completed {
		ids = append(ids, r.ID)
	}
	response.OK(c, DashboardResponse{
		Programs:       published,
		Registrations:  regs,
		NewlyCompleted: ids,
		Stats:          reports.StatsForUser(published, regs, now),
	})
}

// Attendance handles POST /registrations/:id/attendance. Only managers of the program may call it.
func (h *Handler) Attendance(c *gin.Context) {
	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		response.BadRequest(c, "status must be attended or completed")
		return
	}
	reg, program, ok := h.loadRegistration(c)
	if !ok {
		return
	}
	if !session.From(c).CanManage(program) {
		response.Forbidden(c, "only the program creator or an admin can update attendance")
		return
	}
	updated, err := h.lifecycle.Transition(c.Request.Context(), reg.ID, req.Status)
	if err != nil {
		h.lifecycleError(c, err, "failed to update attendance", zap.String("registration_id", reg.ID.String()))
		return
	}
	h.logger.Info("attendance updated",
		zap.String("registration_id", reg.ID.String()),
		zap.String("status", string(updated.AttendanceStatus)))
	response.OK(c, updated)
}

// ListByProgram handles GET /programs/:id/registrations?q= behind programs.RequireManager.
func (h *Handler) ListByProgram(c *gin.Context) {
	p := programs.FromContext(c)
	list, err := h.store.ListByProgram(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list program registrations failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to load registrations")
		return
	}
	response.OK(c, FilterParticipants(list, c.Query("q")))
}

// Stats handles GET /programs/:id/stats behind programs.RequireManager.
func (h *Handler) Stats(c *gin.Context) {
	p := programs.FromContext(c)
	list, err := h.store.ListByProgram(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list program registrations failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, reports.StatsFor(list))
}

// AttendanceReport handles GET /programs/:id/report.csv behind programs.RequireManager.
func (h *Handler) AttendanceReport(c *gin.Context) {
	p := programs.FromContext(c)
	list, err := h.store.ListByProgram(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list program registrations failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to build report")
		return
	}
	out, err := reports.AttendanceCSV(list)
	if err != nil {
		h.logger.Error("write attendance csv failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to build report")
		return
	}
	response.Attachment(c, reports.AttendanceFilename(p.ProgramName), reports.ContentTypeCSV, out)
}

// Certificate handles GET /registrations/:id/certificate. Archived certificates are served by a
// presigned redirect; otherwise the PDF is rendered on the fly.
func (h *Handler) Certificate(c *gin.Context) {
	reg, program, ok := h.loadCertificateRegistration(c)
	if !ok {
		return
	}
	d := dataFor(reg, program)
	filename := certificate.Filename(d)
	if reg.CertificateKey != "" && h.links != nil {
		url, err := h.links.CertificateDownloadURL(c.Request.Context(), reg.CertificateKey, filename)
		if err == nil {
			c.Redirect(http.StatusFound, url)
			return
		}
		h.logger.Warn("presign certificate failed, rendering instead", zap.Error(err),
			zap.String("registration_id", reg.ID.String()))
	}
	pdf, err := h.renderer.RenderBytes(d)
	if err != nil {
		h.logger.Error("render certificate failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		response.Internal(c, "failed to generate certificate")
		return
	}
	response.Attachment(c, filename, storage.ContentTypePDF, pdf)
}

// Preview handles GET /registrations/:id/certificate/preview.
func (h *Handler) Preview(c *gin.Context) {
	reg, program, ok := h.loadCertificateRegistration(c)
	if !ok {
		return
	}
	response.OK(c, certificate.Preview(dataFor(reg, program)))
}

// FilterParticipants keeps registrations whose name, department or staff code contains q,
// ignoring case.
func FilterParticipants(list []models.Registration, q string) []models.Registration {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	out := make([]models.Registration, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.UserName), q) ||
			strings.Contains(strings.ToLower(r.UserDepartment), q) ||
			strings.Contains(strings.ToLower(r.UserStaffCode), q) {
			out = append(out, r)
		}
	}
	return out
}

func dataFor(reg *models.Registration, program *models.Program) certificate.Data {
	completedOn := program.EndDate
	if reg.CompletionDate != nil {
		completedOn = *reg.CompletionDate
	}
	return certificate.NewData(program, reg.UserName, completedOn)
}

func (h *Handler) loadRegistration(c *gin.Context) (*models.Registration, *models.Program, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return nil, nil, false
	}
	ctx := c.Request.Context()
	reg, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "registration not found")
			return nil, nil, false
		}
		h.logger.Error("get registration failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to load registration")
		return nil, nil, false
	}
	program, err := h.programs.GetByID(ctx, reg.ProgramID)
	if err != nil {
		h.logger.Error("get program failed", zap.Error(err), zap.String("program_id", reg.ProgramID.String()))
		response.Internal(c, "failed to load program")
		return nil, nil, false
	}
	return reg, program, true
}

func (h *Handler) loadCertificateRegistration(c *gin.Context) (*models.Registration, *models.Program, bool) {
	reg, program, ok := h.loadRegistration(c)
	if !ok {
		return nil, nil, false
	}
	sess := session.From(c)
	if reg.UserID != sess.UserID() && !sess.CanManage(program) {
		response.NotFound(c, "registration not found")
		return nil, nil, false
	}
	if reg.AttendanceStatus != models.StatusCompleted {
		response.BadRequest(c, "certificate is available once the program is completed")
		return nil, nil, false
	}
	return reg, program, true
}

func (h *Handler) lifecycleError(c *gin.Context, err error, fallback string, fields ...zap.Field) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, lifecycle.ErrProfileIncomplete),
		errors.Is(err, lifecycle.ErrWillingnessRequired),
		errors.Is(err, lifecycle.ErrTransactionRequired),
		errors.Is(err, lifecycle.ErrTransactionNotAccepted):
		response.BadRequest(c, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrAlreadyRegistered),
		errors.Is(err, lifecycle.ErrProgramFull),
		errors.Is(err, lifecycle.ErrProgramClosed):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(fallback, append(fields, zap.Error(err))...)
		response.Internal(c, fallback)
	}
}
