package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/rbac"
	"github.com/aerosky-ops/backend/pkg/response"
)

// RequirePermission allows only principals whose role holds the
// resource:action permission. Runs after Authenticate. The denial message
// names the denied action and resource.
func RequirePermission(resource string, action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.PrincipalFrom(c)
		if p == nil {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		if !rbac.CanAccess(p.Role, resource, action) {
			response.Forbidden(c, "permission denied for "+rbac.Permission(resource, action))
			c.Abort()
			return
		}
		c.Next()
	}
}
