package programs

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
	"github.com/ultron-ftp/backend/pkg/storage"
	"github.com/ultron-ftp/backend/pkg/validator"
)

// Store is the program persistence used by the handler.
type Store interface {
	Getter
	Create(ctx context.Context, p *models.Program) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProgramStatus) error
	SetBrochureURL(ctx context.Context, id uuid.UUID, url string) error
	AppendGalleryPhotos(ctx context.Context, id uuid.UUID, urls []string) error
	SetReportURL(ctx context.Context, id uuid.UUID, url string) error
}

// MaxGalleryFiles bounds the number of photos in one gallery upload.
const MaxGalleryFiles = 20

// CreateProgramRequest is the body for POST /programs.
type CreateProgramRequest struct {
	ProgramName          string   `json:"program_name" validate:"notblank,max=200"`
	SpeakerName          string   `json:"speaker_name" validate:"notblank,max=120"`
	SpeakerDesignation   string   `json:"speaker_designation" validate:"notblank,max=200"`
	StartDate            string   `json:"start_date" validate:"date"`
	EndDate              string   `json:"end_date" validate:"date"`
	Duration             int      `json:"duration" validate:"gte=0"`
	Venue                string   `json:"venue" validate:"notblank,max=200"`
	ConductingDepartment string   `json:"conducting_department" validate:"notblank,max=120"`
	Description          string   `json:"description" validate:"max=5000"`
	MaxParticipants      int      `json:"max_participants" validate:"gte=0"`
	HasRegistrationFee   bool     `json:"has_registration_fee"`
	RegistrationFee      *float64 `json:"registration_fee"`
	UPIID                string   `json:"upi_id" validate:"max=100"`
}

// UpdateStatusRequest is the body for PATCH /programs/:id/status.
type UpdateStatusRequest struct {
	Status models.ProgramStatus `json:"status"`
}

// Handler handles program HTTP endpoints.
type Handler struct {
	repo    Store
	catalog *Catalog
	media   storage.MediaUploader
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a program handler. media may be nil when S3 is not configured.
func NewHandler(repo Store, catalog *Catalog, media storage.MediaUploader, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, catalog: catalog, media: media, logger: logger, now: time.Now}
}

// BuildProgram validates req and returns the program it describes, created by userID.
func BuildProgram(req CreateProgramRequest, userID uuid.UUID) (*models.Program, error) {
	if err := validator.Struct(req); err != nil {
		return nil, errors.New(validator.Message(err))
	}
	start, _ := validator.ParseDate(req.StartDate)
	end, _ := validator.ParseDate(req.EndDate)
	if end.Before(start) {
		return nil, errors.New("end_date must not be before start_date")
	}
	p := &models.Program{
		ProgramName:          strings.TrimSpace(req.ProgramName),
		SpeakerName:          strings.TrimSpace(req.SpeakerName),
		SpeakerDesignation:   strings.TrimSpace(req.SpeakerDesignation),
		StartDate:            start,
		EndDate:              end,
		Duration:             req.Duration,
		Venue:                strings.TrimSpace(req.Venue),
		ConductingDepartment: strings.TrimSpace(req.ConductingDepartment),
		Description:          strings.TrimSpace(req.Description),
		MaxParticipants:      req.MaxParticipants,
		HasRegistrationFee:   req.HasRegistrationFee,
		GalleryPhotos:        []string{},
		Status:               models.ProgramPublished,
		CreatedBy:            userID,
	}
	if p.Duration == 0 {
		p.Duration = models.DurationFromDates(start, end)
	}
	if req.HasRegistrationFee {
		if req.RegistrationFee == nil || *req.RegistrationFee <= 0 {
			return nil, errors.New("registration_fee must be greater than 0")
		}
		if strings.TrimSpace(req.UPIID) == "" {
			return nil, errors.New("upi_id is required when a registration fee is charged")
		}
		fee := *req.RegistrationFee
		p.RegistrationFee = &fee
		p.UPIID = strings.TrimSpace(req.UPIID)
	}
	return p, nil
}

// List handles GET /programs?q=&department=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.catalog.Search(c.Request.Context(), c.Query("q"), c.Query("department"))
	if err != nil {
		h.logger.Error("list programs failed", zap.Error(err))
		response.Internal(c, "failed to load programs")
		return
	}
	response.OK(c, list)
}

// Departments handles GET /programs/departments.
func (h *Handler) Departments(c *gin.Context) {
	list, err := h.catalog.Departments(c.Request.Context())
	if err != nil {
		h.logger.Error("list departments failed", zap.Error(err))
		response.Internal(c, "failed to load departments")
		return
	}
	response.OK(c, list)
}

// Get handles GET /programs/:id. Unpublished programs are visible to their managers only.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "program not found")
			return
		}
		h.logger.Error("get program failed", zap.Error(err), zap.String("program_id", id.String()))
		response.Internal(c, "failed to load program")
		return
	}
	if sess := session.From(c); p.Status != models.ProgramPublished && (sess == nil || !sess.CanManage(p)) {
		response.NotFound(c, "program not found")
		return
	}
	response.OK(c, p)
}

// Create handles POST /programs. New programs are always published.
func (h *Handler) Create(c *gin.Context) {
	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess := session.From(c)
	p, err := BuildProgram(req, sess.UserID())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p.CreatedAt = h.now().UTC()
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create program failed", zap.Error(err), zap.String("user_id", sess.UserID().String()))
		response.Internal(c, "failed to create program")
		return
	}
	h.catalog.Invalidate()
	h.logger.Info("program created", zap.String("program_id", p.ID.String()), zap.String("user_id", sess.UserID().String()))
	response.Created(c, p)
}

// UpdateStatus handles PATCH /programs/:id/status (manager only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	p := FromContext(c)
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		response.BadRequest(c, "status must be one of: draft, published, completed, cancelled")
		return
	}
	if err := h.repo.UpdateStatus(c.Request.Context(), p.ID, req.Status); err != nil {
		h.logger.Error("update program status failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to update status")
		return
	}
	h.catalog.Invalidate()
	p.Status = req.Status
	response.OK(c, p)
}

// UploadBrochure handles POST /programs/:id/brochure (manager only, multipart field "file").
func (h *Handler) UploadBrochure(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "file storage not configured")
		return
	}
	p := FromContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	url, ok := h.uploadImage(c, p.ID, file.Filename, file.Header.Get("Content-Type"), func() ([]byte, error) {
		return storage.ReadUpload(file, storage.MaxMediaFileSize)
	}, func(name string, now time.Time) string {
		return storage.BrochureKey(p.ID.String(), name, now)
	})
	if !ok {
		return
	}
	if err := h.repo.SetBrochureURL(c.Request.Context(), p.ID, url); err != nil {
		h.logger.Error("save brochure url failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to save brochure")
		return
	}
	h.catalog.Invalidate()
	response.OK(c, gin.H{"brochure_url": url})
}

// UploadGallery handles POST /programs/:id/gallery (manager only, multipart field "files").
// Uploaded photos are appended to the existing gallery.
func (h *Handler) UploadGallery(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "file storage not configured")
		return
	}
	p := FromContext(c)
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.BadRequest(c, "missing files (form field: files)")
		return
	}
	files := form.File["files"]
	if len(files) > MaxGalleryFiles {
		response.BadRequest(c, "too many files in one upload")
		return
	}
	urls := make([]string, 0, len(files))
	for i, file := range files {
		url, ok := h.uploadImage(c, p.ID, file.Filename, file.Header.Get("Content-Type"), func() ([]byte, error) {
			return storage.ReadUpload(file, storage.MaxMediaFileSize)
		}, func(name string, now time.Time) string {
			return storage.GalleryKey(p.ID.String(), name, i, now)
		})
		if !ok {
			return
		}
		urls = append(urls, url)
	}
	if err := h.repo.AppendGalleryPhotos(c.Request.Context(), p.ID, urls); err != nil {
		h.logger.Error("save gallery failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to save gallery")
		return
	}
	h.catalog.Invalidate()
	response.OK(c, gin.H{"gallery_photos": append(p.GalleryPhotos, urls...)})
}

// UploadReport handles POST /programs/:id/report (manager only, multipart field "file").
func (h *Handler) UploadReport(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "file storage not configured")
		return
	}
	p := FromContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	contentType, ok := storage.ReportContentType(file.Filename)
	if !ok {
		response.BadRequest(c, "invalid file type: only pdf, doc, docx, xls, xlsx, ppt and pptx are allowed")
		return
	}
	body, err := storage.ReadUpload(file, storage.MaxReportFileSize)
	if err != nil {
		h.uploadReadFailed(c, err)
		return
	}
	ctx := c.Request.Context()
	key := storage.ReportKey(p.ID.String(), file.Filename, h.now())
	url, err := h.media.UploadMedia(ctx, key, contentType, body)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("program_id", p.ID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	if err := h.repo.SetReportURL(ctx, p.ID, url); err != nil {
		h.logger.Error("save report url failed", zap.Error(err), zap.String("program_id", p.ID.String()))
		response.Internal(c, "failed to save report")
		return
	}
	h.catalog.Invalidate()
	response.OK(c, gin.H{"report_url": url})
}

// uploadImage validates, downscales and uploads one image. It writes the error response and
// returns false on failure.
func (h *Handler) uploadImage(c *gin.Context, programID uuid.UUID, filename, declaredType string,
	read func() ([]byte, error), keyFor func(name string, now time.Time) string) (string, bool) {
	if !storage.IsImageContentType(declaredType) {
		response.BadRequest(c, "invalid file type: only images are allowed")
		return "", false
	}
	body, err := read()
	if err != nil {
		h.uploadReadFailed(c, err)
		return "", false
	}
	img, contentType, err := storage.NormalizeImage(bytes.NewReader(body), declaredType, storage.MediaMaxSide)
	if err != nil {
		response.BadRequest(c, "invalid file type: only images are allowed")
		return "", false
	}
	name := strings.TrimSuffix(filename, path.Ext(filename)) + storage.ImageExtension(contentType)
	key := keyFor(name, h.now())
	url, err := h.media.UploadMedia(c.Request.Context(), key, contentType, img)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("program_id", programID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return "", false
	}
	return url, true
}

func (h *Handler) uploadReadFailed(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrTooLarge) {
		response.TooLarge(c, "file is too large")
		return
	}
	h.logger.Error("read uploaded file failed", zap.Error(err))
	response.Internal(c, "failed to read file")
}
