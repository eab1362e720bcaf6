package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
)

// AuthMode records which credential type produced a principal.
type AuthMode string

const (
	ModeSession AuthMode = "session"
	ModeToken   AuthMode = "token"
)

// ContextPrincipal is the gin context key for the resolved principal.
const ContextPrincipal = "principal"

// Principal is the resolved identity + role + tenant context for one
// request. It is rebuilt from the identity row on every request and never
// cached, so role or organization changes take effect immediately.
type Principal struct {
	ID             uuid.UUID
	Login          string
	Role           rbac.Role
	OrganizationID *uuid.UUID
	Mode           AuthMode
}

// NewPrincipal builds a principal from a current identity row.
func NewPrincipal(id *models.Identity, mode AuthMode) *Principal {
	return &Principal{
		ID:             id.ID,
		Login:          id.Login,
		Role:           id.Role,
		OrganizationID: id.OrganizationID,
		Mode:           mode,
	}
}

// IsSuperAdmin reports whether the principal holds the platform role.
func (p *Principal) IsSuperAdmin() bool {
	return rbac.IsSuperAdmin(p.Role)
}

// SetPrincipal stores the principal in the gin context.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(ContextPrincipal, p)
}

// PrincipalFrom returns the principal set by the authenticate middleware,
// or nil when the request is unauthenticated.
func PrincipalFrom(c *gin.Context) *Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

// MustPrincipal returns the principal; it panics if the authenticate
// middleware did not run, which is a routing bug.
func MustPrincipal(c *gin.Context) *Principal {
	return c.MustGet(ContextPrincipal).(*Principal)
}
