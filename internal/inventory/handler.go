package inventory

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/events"
	"github.com/aerosky-ops/backend/internal/middleware"
	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
	"github.com/aerosky-ops/backend/internal/tenant"
	"github.com/aerosky-ops/backend/pkg/database"
	"github.com/aerosky-ops/backend/pkg/response"
)

// Store is the inventory persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID) ([]models.InventoryItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateTransaction(ctx context.Context, tx *models.InventoryTransaction) (*models.InventoryItem, error)
	ListTransactions(ctx context.Context, itemID uuid.UUID) ([]models.InventoryTransaction, error)
}

// Handler handles inventory HTTP endpoints.
type Handler struct {
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
}

// NewHandler creates an inventory handler. publisher may be nil.
func NewHandler(store Store, publisher events.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, publisher: publisher, logger: logger}
}

// RegisterRoutes mounts inventory routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/inventory", middleware.RequirePermission(rbac.ResourceInventory, rbac.ActionView), h.List)
	rg.POST("/inventory", middleware.RequirePermission(rbac.ResourceInventory, rbac.ActionCreate), h.Create)
	rg.GET("/inventory/:id", middleware.RequirePermission(rbac.ResourceInventory, rbac.ActionView), h.GetByID)
	rg.PUT("/inventory/:id", middleware.RequirePermission(rbac.ResourceInventory, rbac.ActionEdit), h.Update)
	rg.DELETE("/inventory/:id", middleware.RequirePermission(rbac.ResourceInventory, rbac.ActionDelete), h.Delete)
	rg.GET("/inventory/:id/transactions", middleware.RequirePermission(rbac.ResourceInventoryTx, rbac.ActionView), h.ListTransactions)
	rg.POST("/inventory/:id/transactions", middleware.RequirePermission(rbac.ResourceInventoryTx, rbac.ActionCreate), h.CreateTransaction)
}

// CreateRequest is the body for POST /inventory.
type CreateRequest struct {
	SKU            string `json:"sku" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Quantity       int    `json:"quantity"`
	MinQuantity    int    `json:"min_quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /inventory/:id. Quantity is adjusted
// through transactions, not edited directly.
type UpdateRequest struct {
	Name           *string `json:"name"`
	MinQuantity    *int    `json:"min_quantity"`
	UnitPriceCents *int    `json:"unit_price_cents"`
	OrganizationID *string `json:"organization_id"`
}

// TransactionRequest is the body for POST /inventory/:id/transactions.
type TransactionRequest struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

// List handles GET /inventory.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.InventoryItem{})
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
		h.logger.Error("list inventory", zap.Error(err))
		response.Internal(c, "failed to list inventory")
		return
	}
	if list == nil {
		list = []models.InventoryItem{}
	}
	response.OK(c, list)
}

func (h *Handler) load(c *gin.Context, p *auth.Principal) (*models.InventoryItem, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid inventory item id")
		return nil, false
	}
	item, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load inventory item")
		return nil, false
	}
	if item == nil || !tenant.CheckRowID(p, item.OrganizationID) {
		response.NotFound(c, "inventory item not found")
		return nil, false
	}
	return item, true
}

// GetByID handles GET /inventory/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	item, ok := h.load(c, p)
	if !ok {
		return
	}
	response.OK(c, item)
}

// Create handles POST /inventory.
func (h *Handler) Create(c *gin.Context) {
	p := auth.MustPrincipal(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Quantity < 0 || req.MinQuantity < 0 {
		response.BadRequest(c, "quantities must not be negative")
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
	item := &models.InventoryItem{
		OrganizationID: orgID,
		SKU:            req.SKU,
		Name:           req.Name,
		Quantity:       req.Quantity,
		MinQuantity:    req.MinQuantity,
		UnitPriceCents: req.UnitPriceCents,
	}
	if err := h.store.Create(c.Request.Context(), item); err != nil {
		if database.IsUniqueViolation(err) {
			response.BadRequest(c, "an inventory item with this SKU already exists")
			return
		}
		h.logger.Error("create inventory item", zap.Error(err))
		response.Internal(c, "failed to create inventory item")
		return
	}
	response.Created(c, item)
}

// Update handles PUT /inventory/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	item, ok := h.load(c, p)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.MinQuantity != nil {
		if *req.MinQuantity < 0 {
			response.BadRequest(c, "min_quantity must not be negative")
			return
		}
		item.MinQuantity = *req.MinQuantity
	}
	if req.UnitPriceCents != nil {
		item.UnitPriceCents = *req.UnitPriceCents
	}
	var requested *uuid.UUID
	var err error
	if req.OrganizationID != nil {
		requested, err = tenant.OrgIDFromString(*req.OrganizationID)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
	}
	item.OrganizationID = tenant.ReassignOrgID(p, requested, item.OrganizationID)
	if err := h.store.Update(c.Request.Context(), item); err != nil {
		h.logger.Error("update inventory item", zap.Error(err))
		response.Internal(c, "failed to update inventory item")
		return
	}
	response.OK(c, item)
}

// Delete handles DELETE /inventory/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	item, ok := h.load(c, p)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), item.ID); err != nil {
		h.logger.Error("delete inventory item", zap.Error(err))
		response.Internal(c, "failed to delete inventory item")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// ListTransactions handles GET /inventory/:id/transactions.
func (h *Handler) ListTransactions(c *gin.Context) {
	p := auth.MustPrincipal(c)
	item, ok := h.load(c, p)
	if !ok {
		return
	}
	list, err := h.store.ListTransactions(c.Request.Context(), item.ID)
	if err != nil {
		h.logger.Error("list inventory transactions", zap.Error(err))
		response.Internal(c, "failed to list transactions")
		return
	}
	if list == nil {
		list = []models.InventoryTransaction{}
	}
	response.OK(c, list)
}

// CreateTransaction handles POST /inventory/:id/transactions. The movement
// row and the quantity adjustment commit in one database transaction.
func (h *Handler) CreateTransaction(c *gin.Context) {
	p := auth.MustPrincipal(c)
	item, ok := h.load(c, p)
	if !ok {
		return
	}
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Type != models.InventoryTxIn && req.Type != models.InventoryTxOut {
		response.BadRequest(c, "type must be in or out")
		return
	}
	if req.Quantity <= 0 {
		response.BadRequest(c, "quantity must be positive")
		return
	}
	tx := &models.InventoryTransaction{
		OrganizationID: item.OrganizationID,
		ItemID:         item.ID,
		Type:           req.Type,
		Quantity:       req.Quantity,
		Note:           req.Note,
		CreatedBy:      p.ID,
	}
	updated, err := h.store.CreateTransaction(c.Request.Context(), tx)
	if err != nil {
		if database.IsCheckViolation(err) {
			response.BadRequest(c, "insufficient stock")
			return
		}
		h.logger.Error("create inventory transaction", zap.Error(err))
		response.Internal(c, "failed to create transaction")
		return
	}
	if h.publisher != nil && updated.Quantity < updated.MinQuantity {
		h.publisher.Publish(updated.OrganizationID, events.EventLowStock, gin.H{
			"item_id":      updated.ID,
			"sku":          updated.SKU,
			"quantity":     updated.Quantity,
			"min_quantity": updated.MinQuantity,
		})
	}
	response.Created(c, gin.H{"transaction": tx, "item": updated})
}
