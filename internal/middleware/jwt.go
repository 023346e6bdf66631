package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/auth"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
)

// ContextUserID is the key for user ID in gin context.
const ContextUserID = "user_id"

// Auth validates the bearer token and attaches a freshly loaded session to the request.
func Auth(jwtService *auth.JWTService, loader session.Loader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		sess, err := session.Load(c.Request.Context(), loader, claims.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				response.Unauthorized(c, "account no longer exists")
			} else {
				logger.Error("load session failed", zap.Error(err), zap.String("user_id", claims.UserID.String()))
				response.ServiceUnavailable(c, "could not load session")
			}
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		session.Set(c, sess)
		c.Next()
	}
}
