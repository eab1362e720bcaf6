package members

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/middleware"
	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
	"github.com/aerosky-ops/backend/internal/tenant"
	"github.com/aerosky-ops/backend/pkg/database"
	"github.com/aerosky-ops/backend/pkg/response"
	"github.com/aerosky-ops/backend/pkg/utils"
)

// Store is the identity persistence surface the handler needs. The auth
// repository satisfies it.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID) ([]models.Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	Create(ctx context.Context, i *models.Identity) error
	Update(ctx context.Context, i *models.Identity) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles team member HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a member handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts member routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/members", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionView), h.List)
	rg.POST("/members", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionCreate), h.Create)
	rg.GET("/members/:id", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionView), h.GetByID)
	rg.PUT("/members/:id", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionEdit), h.Update)
	rg.PUT("/members/:id/password", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionEdit), h.UpdatePassword)
	rg.DELETE("/members/:id", middleware.RequirePermission(rbac.ResourceMember, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /members.
type CreateRequest struct {
	Login          string `json:"login" binding:"required"`
	Email          string `json:"email"`
	Password       string `json:"password" binding:"required,min=8"`
	FullName       string `json:"full_name"`
	Role           string `json:"role" binding:"required"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /members/:id.
type UpdateRequest struct {
	Email          *string `json:"email"`
	FullName       *string `json:"full_name"`
	Role           *string `json:"role"`
	Active         *bool   `json:"active"`
	OrganizationID *string `json:"organization_id"`
}

// PasswordRequest is the body for PUT /members/:id/password.
type PasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

func toPublic(list []models.Identity) []models.IdentityPublic {
	out := make([]models.IdentityPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	return out
}

// List handles GET /members.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.IdentityPublic{})
		return
	}
	if p.IsSuperAdmin() {
		filter, err := tenant.OrgIDFromString(c.Query("organization_id"))
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		orgID = filter
	}
	list, err := h.store.List(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list members", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, toPublic(list))
}

func (h *Handler) load(c *gin.Context, p *auth.Principal) (*models.Identity, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return nil, false
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load member")
		return nil, false
	}
	// Superadmin identities have no organization, so CheckRow hides them
	// from organization admins along with cross-tenant members.
	if m == nil || !tenant.CheckRow(p, m.OrganizationID) {
		response.NotFound(c, "member not found")
		return nil, false
	}
	return m, true
}

// GetByID handles GET /members/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	m, ok := h.load(c, p)
	if !ok {
		return
	}
	response.OK(c, m.ToPublic())
}

// Create handles POST /members. Only superadmins may mint other
// superadmins.
func (h *Handler) Create(c *gin.Context) {
	p := auth.MustPrincipal(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "invalid role")
		return
	}
	if rbac.IsSuperAdmin(role) && !p.IsSuperAdmin() {
		response.Forbidden(c, "permission denied for "+rbac.Permission(rbac.ResourceMember, rbac.ActionCreate))
		return
	}
	m := &models.Identity{
		Login:    req.Login,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		Active:   true,
	}
	if rbac.IsSuperAdmin(role) {
		// Platform accounts are tenant-exempt and carry no organization.
		m.OrganizationID = nil
	} else {
		requested, err := tenant.OrgIDFromString(req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		orgID, err := tenant.CreateOrgID(p, requested)
		if err != nil {
			tenant.WriteScopeError(c, err)
			return
		}
		m.OrganizationID = &orgID
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "failed to create member")
		return
	}
	m.Password = hash
	if err := h.store.Create(c.Request.Context(), m); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "a member with this login or email already exists")
			return
		}
		h.logger.Error("create member", zap.Error(err))
		response.Internal(c, "failed to create member")
		return
	}
	response.Created(c, m.ToPublic())
}

// Update handles PUT /members/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	m, ok := h.load(c, p)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Email != nil {
		m.Email = *req.Email
	}
	if req.FullName != nil {
		m.FullName = *req.FullName
	}
	if req.Role != nil {
		role, ok := rbac.ParseRole(*req.Role)
		if !ok {
			response.BadRequest(c, "invalid role")
			return
		}
		if rbac.IsSuperAdmin(role) && !p.IsSuperAdmin() {
			response.Forbidden(c, "permission denied for "+rbac.Permission(rbac.ResourceMember, rbac.ActionEdit))
			return
		}
		m.Role = role
	}
	if req.Active != nil {
		if m.ID == p.ID && !*req.Active {
			response.BadRequest(c, "cannot deactivate your own account")
			return
		}
		m.Active = *req.Active
	}
	if req.OrganizationID != nil && p.IsSuperAdmin() {
		requested, err := tenant.OrgIDFromString(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		m.OrganizationID = requested
	}
	if err := h.store.Update(c.Request.Context(), m); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "a member with this email already exists")
			return
		}
		h.logger.Error("update member", zap.Error(err))
		response.Internal(c, "failed to update member")
		return
	}
	response.OK(c, m.ToPublic())
}

// UpdatePassword handles PUT /members/:id/password.
func (h *Handler) UpdatePassword(c *gin.Context) {
	p := auth.MustPrincipal(c)
	m, ok := h.load(c, p)
	if !ok {
		return
	}
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "failed to update password")
		return
	}
	if err := h.store.UpdatePassword(c.Request.Context(), m.ID, hash); err != nil {
		h.logger.Error("update password", zap.Error(err))
		response.Internal(c, "failed to update password")
		return
	}
	response.OK(c, gin.H{"updated": true})
}

// Delete handles DELETE /members/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	m, ok := h.load(c, p)
	if !ok {
		return
	}
	if m.ID == p.ID {
		response.BadRequest(c, "cannot delete your own account")
		return
	}
	if err := h.store.Delete(c.Request.Context(), m.ID); err != nil {
		h.logger.Error("delete member", zap.Error(err))
		response.Internal(c, "failed to delete member")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
