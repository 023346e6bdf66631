package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/response"
)

// ProgramGetter loads programs.
type ProgramGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error)
}

// Handler serves payment references for fee-charging programs.
type Handler struct {
	programs ProgramGetter
	builder  *Builder
	logger   *zap.Logger
}

// NewHandler creates a payment handler.
func NewHandler(programs ProgramGetter, builder *Builder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{programs: programs, builder: builder, logger: logger}
}

// Reference handles GET /programs/:id/payment.
func (h *Handler) Reference(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	ref, err := h.builder.Build(p)
	if err != nil {
		h.buildFailed(c, p, err)
		return
	}
	response.OK(c, ref)
}

// QRCode handles GET /programs/:id/payment/qr.png.
func (h *Handler) QRCode(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	png, err := h.builder.QR(p)
	if err != nil {
		h.buildFailed(c, p, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) load(c *gin.Context) (*models.Program, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return nil, false
	}
	p, err := h.programs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "program not found")
			return nil, false
		}
		h.logger.Error("get program failed", zap.Error(err), zap.String("program_id", id.String()))
		response.Internal(c, "failed to load program")
		return nil, false
	}
	if p.Status != models.ProgramPublished {
		response.NotFound(c, "program not found")
		return nil, false
	}
	return p, true
}

func (h *Handler) buildFailed(c *gin.Context, p *models.Program, err error) {
	if errors.Is(err, ErrNoFee) {
		response.NotFound(c, "this program has no registration fee")
		return
	}
	h.logger.Error("build payment reference failed", zap.Error(err), zap.String("program_id", p.ID.String()))
	response.Internal(c, "failed to build payment reference")
}
