package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/pkg/response"
)

// RequireAdmin allows only sessions whose profile carries the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.From(c)
		if sess == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !sess.IsAdmin() {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireProfile allows only users who have completed their profile.
func RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.From(c)
		if sess == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !sess.Profile.Complete() {
			response.Forbidden(c, "please complete your profile first")
			c.Abort()
			return
		}
		c.Next()
	}
}
