package drones

import (
	"context"
	"time"

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

// Store is the drone persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID) ([]models.Drone, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Drone, error)
	Create(ctx context.Context, d *models.Drone) error
	Update(ctx context.Context, d *models.Drone) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles drone HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a drone handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts drone routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/drones", middleware.RequirePermission(rbac.ResourceDrone, rbac.ActionView), h.List)
	rg.POST("/drones", middleware.RequirePermission(rbac.ResourceDrone, rbac.ActionCreate), h.Create)
	rg.GET("/drones/:id", middleware.RequirePermission(rbac.ResourceDrone, rbac.ActionView), h.GetByID)
	rg.PUT("/drones/:id", middleware.RequirePermission(rbac.ResourceDrone, rbac.ActionEdit), h.Update)
	rg.DELETE("/drones/:id", middleware.RequirePermission(rbac.ResourceDrone, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /drones.
type CreateRequest struct {
	SerialNumber   string  `json:"serial_number" binding:"required"`
	Model          string  `json:"model" binding:"required"`
	Manufacturer   string  `json:"manufacturer"`
	Registration   string  `json:"registration"`
	Status         string  `json:"status"`
	PurchasedAt    *string `json:"purchased_at"`
	OrganizationID string  `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /drones/:id.
type UpdateRequest struct {
	Model          *string  `json:"model"`
	Manufacturer   *string  `json:"manufacturer"`
	Registration   *string  `json:"registration"`
	Status         *string  `json:"status"`
	FlightHours    *float64 `json:"flight_hours"`
	OrganizationID *string  `json:"organization_id"` // superadmin only; ignored otherwise
}

func validStatus(s string) bool {
	switch s {
	case models.DroneStatusActive, models.DroneStatusMaintenance, models.DroneStatusRetired:
		return true
	}
	return false
}

// List handles GET /drones. Non-superadmins see their own organization
// only; superadmins see everything or filter with ?organization_id=.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Drone{})
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
		h.logger.Error("list drones", zap.Error(err))
		response.Internal(c, "failed to list drones")
		return
	}
	if list == nil {
		list = []models.Drone{}
	}
	response.OK(c, list)
}

// GetByID handles GET /drones/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid drone id")
		return
	}
	d, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load drone")
		return
	}
	if d == nil || !tenant.CheckRowID(p, d.OrganizationID) {
		response.NotFound(c, "drone not found")
		return
	}
	response.OK(c, d)
}

// Create handles POST /drones.
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
	status := req.Status
	if status == "" {
		status = models.DroneStatusActive
	}
	if !validStatus(status) {
		response.BadRequest(c, "invalid status")
		return
	}
	var purchasedAt *time.Time
	if req.PurchasedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.PurchasedAt)
		if err != nil {
			response.BadRequest(c, "invalid purchased_at")
			return
		}
		purchasedAt = &t
	}
	d := &models.Drone{
		OrganizationID: orgID,
		SerialNumber:   req.SerialNumber,
		Model:          req.Model,
		Manufacturer:   req.Manufacturer,
		Registration:   req.Registration,
		Status:         status,
		PurchasedAt:    purchasedAt,
	}
	if err := h.store.Create(c.Request.Context(), d); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "a drone with this serial number already exists")
			return
		}
		h.logger.Error("create drone", zap.Error(err))
		response.Internal(c, "failed to create drone")
		return
	}
	response.Created(c, d)
}

// Update handles PUT /drones/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid drone id")
		return
	}
	d, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load drone")
		return
	}
	if d == nil || !tenant.CheckRowID(p, d.OrganizationID) {
		response.NotFound(c, "drone not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Model != nil {
		d.Model = *req.Model
	}
	if req.Manufacturer != nil {
		d.Manufacturer = *req.Manufacturer
	}
	if req.Registration != nil {
		d.Registration = *req.Registration
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			response.BadRequest(c, "invalid status")
			return
		}
		d.Status = *req.Status
	}
	if req.FlightHours != nil {
		d.FlightHours = *req.FlightHours
	}
	requested, err := tenant.OrgIDFromString(strValue(req.OrganizationID))
	if err != nil {
		response.BadRequest(c, "invalid organization_id")
		return
	}
	d.OrganizationID = tenant.ReassignOrgID(p, requested, d.OrganizationID)
	if err := h.store.Update(c.Request.Context(), d); err != nil {
		h.logger.Error("update drone", zap.Error(err))
		response.Internal(c, "failed to update drone")
		return
	}
	response.OK(c, d)
}

// Delete handles DELETE /drones/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid drone id")
		return
	}
	d, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load drone")
		return
	}
	if d == nil || !tenant.CheckRowID(p, d.OrganizationID) {
		response.NotFound(c, "drone not found")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if database.IsForeignKeyViolation(err) {
			response.BadRequest(c, "drone has flight logs and cannot be deleted")
			return
		}
		h.logger.Error("delete drone", zap.Error(err))
		response.Internal(c, "failed to delete drone")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
