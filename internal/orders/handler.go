package orders

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

// Store is the order persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID, status string) ([]models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubcontractorStore looks up subcontractors for assignment validation.
type SubcontractorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subcontractor, error)
}

// Handler handles order HTTP endpoints.
type Handler struct {
	store          Store
	subcontractors SubcontractorStore
	logger         *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(store Store, subcontractors SubcontractorStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, subcontractors: subcontractors, logger: logger}
}

// RegisterRoutes mounts order routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/orders", middleware.RequirePermission(rbac.ResourceOrder, rbac.ActionView), h.List)
	rg.POST("/orders", middleware.RequirePermission(rbac.ResourceOrder, rbac.ActionCreate), h.Create)
	rg.GET("/orders/:id", middleware.RequirePermission(rbac.ResourceOrder, rbac.ActionView), h.GetByID)
	rg.PUT("/orders/:id", middleware.RequirePermission(rbac.ResourceOrder, rbac.ActionEdit), h.Update)
	rg.DELETE("/orders/:id", middleware.RequirePermission(rbac.ResourceOrder, rbac.ActionDelete), h.Delete)
}

// CreateRequest is the body for POST /orders.
type CreateRequest struct {
	Reference       string  `json:"reference" binding:"required"`
	CustomerName    string  `json:"customer_name" binding:"required"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	SubcontractorID string  `json:"subcontractor_id"`
	ScheduledAt     *string `json:"scheduled_at"`
	PriceCents      int     `json:"price_cents"`
	Currency        string  `json:"currency"`
	OrganizationID  string  `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /orders/:id.
type UpdateRequest struct {
	CustomerName    *string `json:"customer_name"`
	Description     *string `json:"description"`
	Status          *string `json:"status"`
	SubcontractorID *string `json:"subcontractor_id"` // empty string unassigns
	ScheduledAt     *string `json:"scheduled_at"`
	PriceCents      *int    `json:"price_cents"`
	OrganizationID  *string `json:"organization_id"`
}

func validStatus(s string) bool {
	switch s {
	case models.OrderStatusDraft, models.OrderStatusScheduled, models.OrderStatusInProgress,
		models.OrderStatusCompleted, models.OrderStatusCancelled:
		return true
	}
	return false
}

func (h *Handler) resolveSubcontractor(ctx context.Context, idStr string, orgID uuid.UUID) (*uuid.UUID, bool) {
	if idStr == "" {
		return nil, true
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, false
	}
	s, err := h.subcontractors.GetByID(ctx, id)
	if err != nil || s == nil || s.OrganizationID != orgID {
		return nil, false
	}
	return &id, true
}

// List handles GET /orders. Supports ?status= filtering.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Order{})
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
	status := c.Query("status")
	if status != "" && !validStatus(status) {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.store.List(c.Request.Context(), orgID, status)
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		response.Internal(c, "failed to list orders")
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	response.OK(c, list)
}

// GetByID handles GET /orders/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load order")
		return
	}
	if o == nil || !tenant.CheckRowID(p, o.OrganizationID) {
		response.NotFound(c, "order not found")
		return
	}
	response.OK(c, o)
}

// Create handles POST /orders.
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
		status = models.OrderStatusDraft
	}
	if !validStatus(status) {
		response.BadRequest(c, "invalid status")
		return
	}
	subID, ok := h.resolveSubcontractor(c.Request.Context(), req.SubcontractorID, orgID)
	if !ok {
		response.BadRequest(c, "invalid subcontractor_id")
		return
	}
	var scheduledAt *time.Time
	if req.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			response.BadRequest(c, "invalid scheduled_at")
			return
		}
		scheduledAt = &t
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	o := &models.Order{
		OrganizationID:  orgID,
		Reference:       req.Reference,
		CustomerName:    req.CustomerName,
		Description:     req.Description,
		Status:          status,
		SubcontractorID: subID,
		ScheduledAt:     scheduledAt,
		PriceCents:      req.PriceCents,
		Currency:        currency,
	}
	if err := h.store.Create(c.Request.Context(), o); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "an order with this reference already exists")
			return
		}
		h.logger.Error("create order", zap.Error(err))
		response.Internal(c, "failed to create order")
		return
	}
	response.Created(c, o)
}

// Update handles PUT /orders/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load order")
		return
	}
	if o == nil || !tenant.CheckRowID(p, o.OrganizationID) {
		response.NotFound(c, "order not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.CustomerName != nil {
		o.CustomerName = *req.CustomerName
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			response.BadRequest(c, "invalid status")
			return
		}
		o.Status = *req.Status
	}
	if req.SubcontractorID != nil {
		subID, ok := h.resolveSubcontractor(c.Request.Context(), *req.SubcontractorID, o.OrganizationID)
		if !ok {
			response.BadRequest(c, "invalid subcontractor_id")
			return
		}
		o.SubcontractorID = subID
	}
	if req.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			response.BadRequest(c, "invalid scheduled_at")
			return
		}
		o.ScheduledAt = &t
	}
	if req.PriceCents != nil {
		o.PriceCents = *req.PriceCents
	}
	var requested *uuid.UUID
	if req.OrganizationID != nil {
		requested, err = tenant.OrgIDFromString(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
	}
	o.OrganizationID = tenant.ReassignOrgID(p, requested, o.OrganizationID)
	if err := h.store.Update(c.Request.Context(), o); err != nil {
		h.logger.Error("update order", zap.Error(err))
		response.Internal(c, "failed to update order")
		return
	}
	response.OK(c, o)
}

// Delete handles DELETE /orders/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load order")
		return
	}
	if o == nil || !tenant.CheckRowID(p, o.OrganizationID) {
		response.NotFound(c, "order not found")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete order", zap.Error(err))
		response.Internal(c, "failed to delete order")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
