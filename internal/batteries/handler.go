package batteries

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

// Store is the battery persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID) ([]models.Battery, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Battery, error)
	Create(ctx context.Context, b *models.Battery) error
	Update(ctx context.Context, b *models.Battery) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DroneStore looks up drones for assignment validation.
type DroneStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Drone, error)
}

// Handler handles battery HTTP endpoints.
type Handler struct {
	store  Store
	drones DroneStore
	logger *zap.Logger
}

// NewHandler creates a battery handler.
func NewHandler(store Store, drones DroneStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, drones: drones, logger: logger}
}

// RegisterRoutes mounts battery routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/batteries", middleware.RequirePermission(rbac.ResourceBattery, rbac.ActionView), h.List)
	rg.POST("/batteries", middleware.RequirePermission(rbac.ResourceBattery, rbac.ActionCreate), h.Create)
	rg.GET("/batteries/:id", middleware.RequirePermission(rbac.ResourceBattery, rbac.ActionView), h.GetByID)
	rg.PUT("/batteries/:id", middleware.RequirePermission(rbac.ResourceBattery, rbac.ActionEdit), h.Update)
	rg.DELETE("/batteries/:id", middleware.RequirePermission(rbac.ResourceBattery, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /batteries.
type CreateRequest struct {
	SerialNumber   string `json:"serial_number" binding:"required"`
	Model          string `json:"model" binding:"required"`
	CapacityMah    int    `json:"capacity_mah"`
	DroneID        string `json:"drone_id"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /batteries/:id.
type UpdateRequest struct {
	Model          *string `json:"model"`
	CapacityMah    *int    `json:"capacity_mah"`
	CycleCount     *int    `json:"cycle_count"`
	HealthPercent  *int    `json:"health_percent"`
	DroneID        *string `json:"drone_id"` // empty string unassigns
	OrganizationID *string `json:"organization_id"`
}

// resolveDrone validates a drone assignment: the drone must exist and
// belong to the battery's organization.
func (h *Handler) resolveDrone(ctx context.Context, idStr string, orgID uuid.UUID) (*uuid.UUID, bool) {
	if idStr == "" {
		return nil, true
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, false
	}
	d, err := h.drones.GetByID(ctx, id)
	if err != nil || d == nil || d.OrganizationID != orgID {
		return nil, false
	}
	return &id, true
}

// List handles GET /batteries.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Battery{})
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
		h.logger.Error("list batteries", zap.Error(err))
		response.Internal(c, "failed to list batteries")
		return
	}
	if list == nil {
		list = []models.Battery{}
	}
	response.OK(c, list)
}

// GetByID handles GET /batteries/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid battery id")
		return
	}
	b, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load battery")
		return
	}
	if b == nil || !tenant.CheckRowID(p, b.OrganizationID) {
		response.NotFound(c, "battery not found")
		return
	}
	response.OK(c, b)
}

// Create handles POST /batteries.
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
	droneID, ok := h.resolveDrone(c.Request.Context(), req.DroneID, orgID)
	if !ok {
		response.BadRequest(c, "invalid drone_id")
		return
	}
	b := &models.Battery{
		OrganizationID: orgID,
		SerialNumber:   req.SerialNumber,
		Model:          req.Model,
		CapacityMah:    req.CapacityMah,
		HealthPercent:  100,
		DroneID:        droneID,
	}
	if err := h.store.Create(c.Request.Context(), b); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "a battery with this serial number already exists")
			return
		}
		h.logger.Error("create battery", zap.Error(err))
		response.Internal(c, "failed to create battery")
		return
	}
	response.Created(c, b)
}

// Update handles PUT /batteries/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid battery id")
		return
	}
	b, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load battery")
		return
	}
	if b == nil || !tenant.CheckRowID(p, b.OrganizationID) {
		response.NotFound(c, "battery not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Model != nil {
		b.Model = *req.Model
	}
	if req.CapacityMah != nil {
		b.CapacityMah = *req.CapacityMah
	}
	if req.CycleCount != nil {
		b.CycleCount = *req.CycleCount
	}
	if req.HealthPercent != nil {
		if *req.HealthPercent < 0 || *req.HealthPercent > 100 {
			response.BadRequest(c, "health_percent must be 0-100")
			return
		}
		b.HealthPercent = *req.HealthPercent
	}
	if req.DroneID != nil {
		droneID, ok := h.resolveDrone(c.Request.Context(), *req.DroneID, b.OrganizationID)
		if !ok {
			response.BadRequest(c, "invalid drone_id")
			return
		}
		b.DroneID = droneID
	}
	var requested *uuid.UUID
	if req.OrganizationID != nil {
		requested, err = tenant.OrgIDFromString(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
	}
	b.OrganizationID = tenant.ReassignOrgID(p, requested, b.OrganizationID)
	if err := h.store.Update(c.Request.Context(), b); err != nil {
		h.logger.Error("update battery", zap.Error(err))
		response.Internal(c, "failed to update battery")
		return
	}
	response.OK(c, b)
}

// Delete handles DELETE /batteries/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid battery id")
		return
	}
	b, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load battery")
		return
	}
	if b == nil || !tenant.CheckRowID(p, b.OrganizationID) {
		response.NotFound(c, "battery not found")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete battery", zap.Error(err))
		response.Internal(c, "failed to delete battery")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
