package tickets

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
	"github.com/aerosky-ops/backend/pkg/response"
)

// Store is the ticket persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID, status string) ([]models.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	CreateWithMessage(ctx context.Context, t *models.Ticket, firstMessage *models.TicketMessage) error
	Update(ctx context.Context, t *models.Ticket) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error)
	CreateMessage(ctx context.Context, m *models.TicketMessage) error
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
}

// NewHandler creates a ticket handler. publisher may be nil.
func NewHandler(store Store, publisher events.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, publisher: publisher, logger: logger}
}

// RegisterRoutes mounts ticket routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/tickets", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionView), h.List)
	rg.POST("/tickets", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionCreate), h.Create)
	rg.GET("/tickets/:id", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionView), h.GetByID)
	rg.PUT("/tickets/:id", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionEdit), h.Update)
	rg.DELETE("/tickets/:id", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionDelete), h.Delete)
	rg.GET("/tickets/:id/messages", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionView), h.ListMessages)
	rg.POST("/tickets/:id/messages", middleware.RequirePermission(rbac.ResourceTicket, rbac.ActionCreate), h.CreateMessage)
}

// CreateRequest is the body for POST /tickets.
type CreateRequest struct {
	Subject        string `json:"subject" binding:"required"`
	Message        string `json:"message" binding:"required"`
	Priority       string `json:"priority"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /tickets/:id.
type UpdateRequest struct {
	Subject  *string `json:"subject"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

// MessageRequest is the body for POST /tickets/:id/messages.
type MessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func validStatus(s string) bool {
	switch s {
	case models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed:
		return true
	}
	return false
}

func validPriority(s string) bool {
	switch s {
	case models.TicketPriorityLow, models.TicketPriorityNormal, models.TicketPriorityHigh, models.TicketPriorityUrgent:
		return true
	}
	return false
}

// List handles GET /tickets. Supports ?status= filtering.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.Ticket{})
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
		h.logger.Error("list tickets", zap.Error(err))
		response.Internal(c, "failed to list tickets")
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}
	response.OK(c, list)
}

func (h *Handler) load(c *gin.Context, p *auth.Principal) (*models.Ticket, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return nil, false
	}
	t, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load ticket")
		return nil, false
	}
	if t == nil || !tenant.CheckRowID(p, t.OrganizationID) {
		response.NotFound(c, "ticket not found")
		return nil, false
	}
	return t, true
}

// GetByID handles GET /tickets/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	t, ok := h.load(c, p)
	if !ok {
		return
	}
	response.OK(c, t)
}

// Create handles POST /tickets. The ticket and its first message commit in
// one database transaction.
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
	priority := req.Priority
	if priority == "" {
		priority = models.TicketPriorityNormal
	}
	if !validPriority(priority) {
		response.BadRequest(c, "invalid priority")
		return
	}
	t := &models.Ticket{
		OrganizationID: orgID,
		Subject:        req.Subject,
		Status:         models.TicketOpen,
		Priority:       priority,
		CreatedBy:      p.ID,
	}
	first := &models.TicketMessage{
		AuthorID: p.ID,
		Body:     req.Message,
	}
	if err := h.store.CreateWithMessage(c.Request.Context(), t, first); err != nil {
		h.logger.Error("create ticket", zap.Error(err))
		response.Internal(c, "failed to create ticket")
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(orgID, events.EventTicketCreated, gin.H{
			"ticket_id": t.ID,
			"subject":   t.Subject,
			"priority":  t.Priority,
		})
	}
	response.Created(c, gin.H{"ticket": t, "message": first})
}

// Update handles PUT /tickets/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	t, ok := h.load(c, p)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Subject != nil {
		t.Subject = *req.Subject
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			response.BadRequest(c, "invalid status")
			return
		}
		t.Status = *req.Status
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			response.BadRequest(c, "invalid priority")
			return
		}
		t.Priority = *req.Priority
	}
	if err := h.store.Update(c.Request.Context(), t); err != nil {
		h.logger.Error("update ticket", zap.Error(err))
		response.Internal(c, "failed to update ticket")
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /tickets/:id. Messages cascade.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	t, ok := h.load(c, p)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), t.ID); err != nil {
		h.logger.Error("delete ticket", zap.Error(err))
		response.Internal(c, "failed to delete ticket")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// ListMessages handles GET /tickets/:id/messages. Scope is checked on the
// parent ticket.
func (h *Handler) ListMessages(c *gin.Context) {
	p := auth.MustPrincipal(c)
	t, ok := h.load(c, p)
	if !ok {
		return
	}
	list, err := h.store.ListMessages(c.Request.Context(), t.ID)
	if err != nil {
		h.logger.Error("list ticket messages", zap.Error(err))
		response.Internal(c, "failed to list messages")
		return
	}
	if list == nil {
		list = []models.TicketMessage{}
	}
	response.OK(c, list)
}

// CreateMessage handles POST /tickets/:id/messages.
func (h *Handler) CreateMessage(c *gin.Context) {
	p := auth.MustPrincipal(c)
	t, ok := h.load(c, p)
	if !ok {
		return
	}
	if t.Status == models.TicketClosed {
		response.BadRequest(c, "ticket is closed")
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m := &models.TicketMessage{
		TicketID: t.ID,
		AuthorID: p.ID,
		Body:     req.Body,
	}
	if err := h.store.CreateMessage(c.Request.Context(), m); err != nil {
		h.logger.Error("create ticket message", zap.Error(err))
		response.Internal(c, "failed to create message")
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(t.OrganizationID, events.EventTicketMessage, gin.H{
			"ticket_id":  t.ID,
			"message_id": m.ID,
			"author_id":  m.AuthorID,
		})
	}
	response.Created(c, m)
}
