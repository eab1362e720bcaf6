package subcontractors

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

// Store is the subcontractor persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID) ([]models.Subcontractor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subcontractor, error)
	Create(ctx context.Context, s *models.Subcontractor) error
	Update(ctx context.Context, s *models.Subcontractor) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles subcontractor HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a subcontractor handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts subcontractor routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/subcontractors", middleware.RequirePermission(rbac.ResourceSubcontractor, rbac.ActionView), h.List)
	rg.POST("/subcontractors", middleware.RequirePermission(rbac.ResourceSubcontractor, rbac.ActionCreate), h.Create)
	rg.GET("/subcontractors/:id", middleware.RequirePermission(rbac.ResourceSubcontractor, rbac.ActionView), h.GetByID)
	rg.PUT("/subcontractors/:id", middleware.RequirePermission(rbac.ResourceSubcontractor, rbac.ActionEdit), h.Update)
	rg.DELETE("/subcontractors/:id", middleware.RequirePermission(rbac.ResourceSubcontractor, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /subcontractors.
type CreateRequest struct {
	CompanyName    string `json:"company_name" binding:"required"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email"`
	ContactPhone   string `json:"contact_phone"`
	LicenseNumber  string `json:"license_number"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /subcontractors/:id.
type UpdateRequest struct {
	CompanyName    *string `json:"company_name"`
	ContactName    *string `json:"contact_name"`
	ContactEmail   *string `json:"contact_email"`
	ContactPhone   *string `json:"contact_phone"`
	LicenseNumber  *string `json:"license_number"`
	OrganizationID *string `json:"organization_id"`
}

// List handles GET /subcontractors.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Subcontractor{})
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
		h.logger.Error("list subcontractors", zap.Error(err))
		response.Internal(c, "failed to list subcontractors")
		return
	}
	if list == nil {
		list = []models.Subcontractor{}
	}
	response.OK(c, list)
}

// GetByID handles GET /subcontractors/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subcontractor id")
		return
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load subcontractor")
		return
	}
	if s == nil || !tenant.CheckRowID(p, s.OrganizationID) {
		response.NotFound(c, "subcontractor not found")
		return
	}
	response.OK(c, s)
}

// Create handles POST /subcontractors.
func (h *Handler) Create(c *gin.Context) {
	p := auth.MustPrincipal(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
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
	s := &models.Subcontractor{
		OrganizationID: orgID,
		CompanyName:    req.CompanyName,
		ContactName:    req.ContactName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		LicenseNumber:  req.LicenseNumber,
	}
	if err := h.store.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create subcontractor", zap.Error(err))
		response.Internal(c, "failed to create subcontractor")
		return
	}
	response.Created(c, s)
}

// Update handles PUT /subcontractors/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subcontractor id")
		return
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load subcontractor")
		return
	}
	if s == nil || !tenant.CheckRowID(p, s.OrganizationID) {
		response.NotFound(c, "subcontractor not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.CompanyName != nil {
		s.CompanyName = *req.CompanyName
	}
	if req.ContactName != nil {
		s.ContactName = *req.ContactName
	}
	if req.ContactEmail != nil {
		s.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		s.ContactPhone = *req.ContactPhone
	}
	if req.LicenseNumber != nil {
		s.LicenseNumber = *req.LicenseNumber
	}
	var requested *uuid.UUID
	if req.OrganizationID != nil {
		requested, err = tenant.OrgIDFromString(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
	}
	s.OrganizationID = tenant.ReassignOrgID(p, requested, s.OrganizationID)
	if err := h.store.Update(c.Request.Context(), s); err != nil {
		h.logger.Error("update subcontractor", zap.Error(err))
		response.Internal(c, "failed to update subcontractor")
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /subcontractors/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subcontractor id")
		return
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load subcontractor")
		return
	}
	if s == nil || !tenant.CheckRowID(p, s.OrganizationID) {
		response.NotFound(c, "subcontractor not found")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if database.IsForeignKeyViolation(err) {
			response.BadRequest(c, "subcontractor is referenced by orders and cannot be deleted")
			return
		}
		h.logger.Error("delete subcontractor", zap.Error(err))
		response.Internal(c, "failed to delete subcontractor")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
