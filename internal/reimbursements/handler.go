package reimbursements

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
	"github.com/aerosky-ops/backend/pkg/response"
	"github.com/aerosky-ops/backend/pkg/storage"
)

// Store is the reimbursement persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID, memberID *uuid.UUID) ([]models.Reimbursement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reimbursement, error)
	Create(ctx context.Context, rb *models.Reimbursement) error
	Update(ctx context.Context, rb *models.Reimbursement) error
	UpdateReceiptKey(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// IdentityStore looks up identities for claim attribution.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
}

// ReceiptStore issues pre-signed receipt URLs and manages the underlying
// objects.
type ReceiptStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Handler handles reimbursement HTTP endpoints.
type Handler struct {
	store      Store
	identities IdentityStore
	receipts   ReceiptStore
	logger     *zap.Logger
}

// NewHandler creates a reimbursement handler. receipts may be nil.
func NewHandler(store Store, identities IdentityStore, receipts ReceiptStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, identities: identities, receipts: receipts, logger: logger}
}

// RegisterRoutes mounts reimbursement routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/reimbursements", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionView), h.List)
	rg.POST("/reimbursements", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionCreate), h.Create)
	rg.GET("/reimbursements/:id", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionView), h.GetByID)
	rg.PUT("/reimbursements/:id", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionEdit), h.Update)
	rg.DELETE("/reimbursements/:id", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionDelete), h.Delete)
	rg.POST("/reimbursements/:id/receipt-upload-url", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionEdit), h.ReceiptUploadURL)
	rg.GET("/reimbursements/:id/receipt-url", middleware.RequirePermission(rbac.ResourceReimbursement, rbac.ActionView), h.ReceiptURL)
}

// CreateRequest is the body for POST /reimbursements.
type CreateRequest struct {
	Description    string `json:"description" binding:"required"`
	AmountCents    int    `json:"amount_cents" binding:"required"`
	Currency       string `json:"currency"`
	MemberID       string `json:"member_id"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /reimbursements/:id.
type UpdateRequest struct {
	Description *string `json:"description"`
	AmountCents *int    `json:"amount_cents"`
	Status      *string `json:"status"`
}

// UploadURLRequest is the body for POST /reimbursements/:id/receipt-upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

func validStatus(s string) bool {
	switch s {
	case models.ReimbursementPending, models.ReimbursementApproved,
		models.ReimbursementRejected, models.ReimbursementPaid:
		return true
	}
	return false
}

// List handles GET /reimbursements. Pilots see only their own claims.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Reimbursement{})
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
	var memberID *uuid.UUID
	if p.Role == rbac.RolePilot {
		memberID = &p.ID
	}
	list, err := h.store.List(c.Request.Context(), orgID, memberID)
	if err != nil {
		h.logger.Error("list reimbursements", zap.Error(err))
		response.Internal(c, "failed to list reimbursements")
		return
	}
	if list == nil {
		list = []models.Reimbursement{}
	}
	response.OK(c, list)
}

func (h *Handler) load(c *gin.Context, p *auth.Principal) (*models.Reimbursement, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reimbursement id")
		return nil, false
	}
	rb, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load reimbursement")
		return nil, false
	}
	if rb == nil || !tenant.CheckRowID(p, rb.OrganizationID) {
		response.NotFound(c, "reimbursement not found")
		return nil, false
	}
	if p.Role == rbac.RolePilot && rb.MemberID != p.ID {
		response.NotFound(c, "reimbursement not found")
		return nil, false
	}
	return rb, true
}

// GetByID handles GET /reimbursements/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	rb, ok := h.load(c, p)
	if !ok {
		return
	}
	response.OK(c, rb)
}

// Create handles POST /reimbursements. Pilots always file under their own
// id; admins may file on behalf of another member.
func (h *Handler) Create(c *gin.Context) {
	p := auth.MustPrincipal(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.AmountCents <= 0 {
		response.BadRequest(c, "amount_cents must be positive")
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
	memberID := p.ID
	if req.MemberID != "" && p.Role != rbac.RolePilot {
		memberID, err = uuid.Parse(req.MemberID)
		if err != nil {
			response.BadRequest(c, "invalid member_id")
			return
		}
		member, err := h.identities.GetByID(c.Request.Context(), memberID)
		if err != nil || member == nil || !member.Active ||
			member.OrganizationID == nil || *member.OrganizationID != orgID {
			response.BadRequest(c, "invalid member_id")
			return
		}
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	rb := &models.Reimbursement{
		OrganizationID: orgID,
		MemberID:       memberID,
		Description:    req.Description,
		AmountCents:    req.AmountCents,
		Currency:       currency,
		Status:         models.ReimbursementPending,
	}
	if err := h.store.Create(c.Request.Context(), rb); err != nil {
		h.logger.Error("create reimbursement", zap.Error(err))
		response.Internal(c, "failed to create reimbursement")
		return
	}
	response.Created(c, rb)
}

// Update handles PUT /reimbursements/:id. Status changes are reserved for
// non-pilot roles.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	rb, ok := h.load(c, p)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Description != nil {
		rb.Description = *req.Description
	}
	if req.AmountCents != nil {
		if *req.AmountCents <= 0 {
			response.BadRequest(c, "amount_cents must be positive")
			return
		}
		rb.AmountCents = *req.AmountCents
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			response.BadRequest(c, "invalid status")
			return
		}
		if p.Role == rbac.RolePilot {
			response.Forbidden(c, "permission denied for "+rbac.Permission(rbac.ResourceReimbursement, rbac.ActionEdit))
			return
		}
		rb.Status = *req.Status
	}
	if err := h.store.Update(c.Request.Context(), rb); err != nil {
		h.logger.Error("update reimbursement", zap.Error(err))
		response.Internal(c, "failed to update reimbursement")
		return
	}
	response.OK(c, rb)
}

// Delete handles DELETE /reimbursements/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	rb, ok := h.load(c, p)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), rb.ID); err != nil {
		h.logger.Error("delete reimbursement", zap.Error(err))
		response.Internal(c, "failed to delete reimbursement")
		return
	}
	if rb.ReceiptKey != "" && h.receipts != nil {
		if err := h.receipts.DeleteObject(c.Request.Context(), rb.ReceiptKey); err != nil {
			h.logger.Warn("delete receipt object", zap.Error(err), zap.String("key", rb.ReceiptKey))
		}
	}
	response.OK(c, gin.H{"deleted": true})
}

// ReceiptUploadURL handles POST /reimbursements/:id/receipt-upload-url.
func (h *Handler) ReceiptUploadURL(c *gin.Context) {
	p := auth.MustPrincipal(c)
	rb, ok := h.load(c, p)
	if !ok {
		return
	}
	if h.receipts == nil {
		response.Internal(c, "receipt storage is not configured")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateAttachment(req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	key := storage.ReceiptKey(rb.OrganizationID.String(), rb.ID.String(), req.Filename)
	url, err := h.receipts.PresignUpload(c.Request.Context(), key, storage.ContentTypeForFilename(req.Filename))
	if err != nil {
		h.logger.Error("presign receipt upload", zap.Error(err))
		response.Internal(c, "failed to create upload URL")
		return
	}
	if err := h.store.UpdateReceiptKey(c.Request.Context(), rb.ID, key); err != nil {
		h.logger.Error("store receipt key", zap.Error(err))
		response.Internal(c, "failed to create upload URL")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "content_type": storage.ContentTypeForFilename(req.Filename)})
}

// ReceiptURL handles GET /reimbursements/:id/receipt-url.
func (h *Handler) ReceiptURL(c *gin.Context) {
	p := auth.MustPrincipal(c)
	rb, ok := h.load(c, p)
	if !ok {
		return
	}
	if rb.ReceiptKey == "" {
		response.NotFound(c, "reimbursement has no receipt")
		return
	}
	if h.receipts == nil {
		response.Internal(c, "receipt storage is not configured")
		return
	}
	url, err := h.receipts.PresignDownload(c.Request.Context(), rb.ReceiptKey)
	if err != nil {
		h.logger.Error("presign receipt download", zap.Error(err))
		response.Internal(c, "failed to create download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
