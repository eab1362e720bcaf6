package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const mobilePathPrefix = "/mobile/"

// CORS sets CORS headers. The /mobile path family always answers with a
// wildcard origin so the mobile client can call the API cross-origin;
// dashboard paths use the configured origin list ("*" or comma-separated).
func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := parseOrigins(allowedOrigins)
	return func(c *gin.Context) {
		allowOrigin := ""
		if strings.HasPrefix(c.Request.URL.Path, mobilePathPrefix) {
			allowOrigin = "*"
		} else {
			origin := c.GetHeader("Origin")
			if len(origins) == 0 || origins["*"] {
				allowOrigin = "*"
			} else if origin != "" && origins[origin] {
				allowOrigin = origin
			}
		}
		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			if allowOrigin != "*" {
				// Response depends on the request origin; keep caches honest.
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func parseOrigins(s string) map[string]bool {
	m := make(map[string]bool)
	for _, o := range strings.Split(strings.TrimSpace(s), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			m[o] = true
		}
	}
	return m
}
