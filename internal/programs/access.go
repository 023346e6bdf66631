package programs

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
)

// ContextProgram is the key under which RequireManager stores the loaded program.
const ContextProgram = "program"

// Getter loads a program by id.
type Getter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error)
}

// RequireManager loads the program named by the :id param and allows the request only when
// the session user created it or is an admin.
func RequireManager(store Getter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid program id")
			c.Abort()
			return
		}
		p, err := store.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				response.NotFound(c, "program not found")
			} else {
				logger.Error("load program failed", zap.Error(err), zap.String("program_id", id.String()))
				response.Internal(c, "failed to load program")
			}
			c.Abort()
			return
		}
		sess := session.From(c)
		if sess == nil || !sess.CanManage(p) {
			response.Forbidden(c, "only the program creator or an admin can manage this program")
			c.Abort()
			return
		}
		c.Set(ContextProgram, p)
		c.Next()
	}
}

// FromContext returns the program loaded by RequireManager.
func FromContext(c *gin.Context) *models.Program {
	v, ok := c.Get(ContextProgram)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Program)
	return p
}
