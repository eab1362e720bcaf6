package organizations

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
)

// Store is the organization persistence surface the handler needs.
type Store interface {
	List(ctx context.Context) ([]models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	Create(ctx context.Context, o *models.Organization) error
	Update(ctx context.Context, o *models.Organization) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an organization handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts organization routes on an authenticated group.
// Create and delete reach superadmins only through the permission table.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/organizations", middleware.RequirePermission(rbac.ResourceOrganization, rbac.ActionView), h.List)
	rg.POST("/organizations", middleware.RequirePermission(rbac.ResourceOrganization, rbac.ActionCreate), h.Create)
	rg.GET("/organizations/:id", middleware.RequirePermission(rbac.ResourceOrganization, rbac.ActionView), h.GetByID)
	rg.PUT("/organizations/:id", middleware.RequirePermission(rbac.ResourceOrganization, rbac.ActionEdit), h.Update)
	rg.DELETE("/organizations/:id", middleware.RequirePermission(rbac.ResourceOrganization, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /organizations.
type CreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Slug    string `json:"slug" binding:"required"`
	Country string `json:"country"`
}

// UpdateRequest is the body for PUT /organizations/:id.
type UpdateRequest struct {
	Name    *string `json:"name"`
	Country *string `json:"country"`
}

// List handles GET /organizations. Superadmins see every organization;
// members see only their own as a single-element list.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	if p.IsSuperAdmin() {
		list, err := h.store.List(c.Request.Context())
		if err != nil {
			h.logger.Error("list organizations", zap.Error(err))
			response.Internal(c, "failed to list organizations")
			return
		}
		if list == nil {
			list = []models.Organization{}
		}
		response.OK(c, list)
		return
	}
	if p.OrganizationID == nil {
		response.OK(c, []models.Organization{})
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), *p.OrganizationID)
	if err != nil {
		h.logger.Error("load own organization", zap.Error(err))
		response.Internal(c, "failed to list organizations")
		return
	}
	if o == nil {
		response.OK(c, []models.Organization{})
		return
	}
	response.OK(c, []models.Organization{*o})
}

// GetByID handles GET /organizations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load organization")
		return
	}
	if o == nil || !tenant.CheckRowID(p, o.ID) {
		response.NotFound(c, "organization not found")
		return
	}
	response.OK(c, o)
}

// Create handles POST /organizations.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	o := &models.Organization{
		Name:    req.Name,
		Slug:    req.Slug,
		Country: req.Country,
	}
	if err := h.store.Create(c.Request.Context(), o); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "an organization with this slug already exists")
			return
		}
		h.logger.Error("create organization", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}
	response.Created(c, o)
}

// Update handles PUT /organizations/:id. The slug is immutable.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load organization")
		return
	}
	if o == nil || !tenant.CheckRowID(p, o.ID) {
		response.NotFound(c, "organization not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Country != nil {
		o.Country = *req.Country
	}
	if err := h.store.Update(c.Request.Context(), o); err != nil {
		h.logger.Error("update organization", zap.Error(err))
		response.Internal(c, "failed to update organization")
		return
	}
	response.OK(c, o)
}

// Delete handles DELETE /organizations/:id. Removes the organization and
// every row it owns in one database transaction.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load organization")
		return
	}
	if o == nil {
		response.NotFound(c, "organization not found")
		return
	}
	if err := h.store.DeleteCascade(c.Request.Context(), id); err != nil {
		h.logger.Error("delete organization", zap.Error(err), zap.String("org_id", id.String()))
		response.Internal(c, "failed to delete organization")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
