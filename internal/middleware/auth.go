package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/pkg/response"
)

// Authenticate resolves the request credential (session cookie or bearer
// token) into a principal and stores it in the context. Requests with no
// resolvable principal are answered 401 without revealing which mechanism
// was tried.
func Authenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(auth.SessionCookie)
		p := resolver.Resolve(c.Request.Context(), sessionID, c.GetHeader("Authorization"))
		if p == nil {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		auth.SetPrincipal(c, p)
		c.Next()
	}
}
