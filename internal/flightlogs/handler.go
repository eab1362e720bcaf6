package flightlogs

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

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
	"github.com/aerosky-ops/backend/pkg/storage"
)

// Store is the flight log persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, orgID *uuid.UUID, droneID, pilotID *uuid.UUID) ([]models.FlightLog, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FlightLog, error)
	Create(ctx context.Context, fl *models.FlightLog) error
	Update(ctx context.Context, fl *models.FlightLog) error
	UpdateAttachmentKey(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DroneStore looks up drones for flight validation.
type DroneStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Drone, error)
}

// OrderStore looks up orders for flight-to-order linking.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// IdentityStore looks up identities for pilot attribution.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
}

// AttachmentStore issues pre-signed attachment URLs and manages the
// underlying objects.
type AttachmentStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	DeleteObject(ctx context.Context, key string) error
}

// Handler handles flight log HTTP endpoints.
type Handler struct {
	store       Store
	drones      DroneStore
	orders      OrderStore
	identities  IdentityStore
	attachments AttachmentStore
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewHandler creates a flight log handler. attachments and publisher may be nil.
func NewHandler(store Store, drones DroneStore, orders OrderStore, identities IdentityStore, attachments AttachmentStore, publisher events.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, drones: drones, orders: orders, identities: identities, attachments: attachments, publisher: publisher, logger: logger}
}

// RegisterRoutes mounts flight log routes on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/flight-logs", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionView), h.List)
	rg.GET("/flight-logs/export", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionView), h.Export)
	rg.POST("/flight-logs", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionCreate), h.Create)
	rg.GET("/flight-logs/:id", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionView), h.GetByID)
	rg.PUT("/flight-logs/:id", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionEdit), h.Update)
	rg.DELETE("/flight-logs/:id", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionDelete), h.Delete)
	rg.POST("/flight-logs/:id/attachment-upload-url", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionEdit), h.AttachmentUploadURL)
	rg.GET("/flight-logs/:id/attachment-url", middleware.RequirePermission(rbac.ResourceFlightLog, rbac.ActionView), h.AttachmentURL)
}

// CreateRequest is the body for POST /flight-logs.
type CreateRequest struct {
	DroneID        string `json:"drone_id" binding:"required"`
	PilotID        string `json:"pilot_id"`
	OrderID        string `json:"order_id"`
	Location       string `json:"location" binding:"required"`
	TookOffAt      string `json:"took_off_at" binding:"required"`
	LandedAt       string `json:"landed_at" binding:"required"`
	Notes          string `json:"notes"`
	OrganizationID string `json:"organization_id"` // honored for superadmins only
}

// UpdateRequest is the body for PUT /flight-logs/:id.
type UpdateRequest struct {
	Location  *string `json:"location"`
	TookOffAt *string `json:"took_off_at"`
	LandedAt  *string `json:"landed_at"`
	Notes     *string `json:"notes"`
	OrderID   *string `json:"order_id"` // empty string unlinks
}

// UploadURLRequest is the body for POST /flight-logs/:id/attachment-upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// List handles GET /flight-logs. Supports ?drone_id= and ?pilot_id= filters.
func (h *Handler) List(c *gin.Context) {
	p := auth.MustPrincipal(c)
	orgID, ok := tenant.ListScope(p)
	if !ok {
		response.OK(c, []models.FlightLog{})
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
	droneID, err := tenant.OrgIDFromString(c.Query("drone_id"))
	if err != nil {
		response.BadRequest(c, "invalid drone_id")
		return
	}
	pilotID, err := tenant.OrgIDFromString(c.Query("pilot_id"))
	if err != nil {
		response.BadRequest(c, "invalid pilot_id")
		return
	}
	list, err := h.store.List(c.Request.Context(), orgID, droneID, pilotID)
	if err != nil {
		h.logger.Error("list flight logs", zap.Error(err))
		response.Internal(c, "failed to list flight logs")
		return
	}
	if list == nil {
		list = []models.FlightLog{}
	}
	response.OK(c, list)
}

// GetByID handles GET /flight-logs/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p := auth.MustPrincipal(c)
	fl, ok := h.load(c, p)
	if !ok {
		return
	}
	response.OK(c, fl)
}

func (h *Handler) load(c *gin.Context, p *auth.Principal) (*models.FlightLog, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid flight log id")
		return nil, false
	}
	fl, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load flight log")
		return nil, false
	}
	if fl == nil || !tenant.CheckRowID(p, fl.OrganizationID) {
		response.NotFound(c, "flight log not found")
		return nil, false
	}
	return fl, true
}

func (h *Handler) resolveOrder(ctx context.Context, idStr string, orgID uuid.UUID) (*uuid.UUID, bool) {
	if idStr == "" {
		return nil, true
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, false
	}
	o, err := h.orders.GetByID(ctx, id)
	if err != nil || o == nil || o.OrganizationID != orgID {
		return nil, false
	}
	return &id, true
}

// Create handles POST /flight-logs. Pilots always file under their own id;
// managers may file on behalf of another pilot.
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
	droneID, err := uuid.Parse(req.DroneID)
	if err != nil {
		response.BadRequest(c, "invalid drone_id")
		return
	}
	d, err := h.drones.GetByID(c.Request.Context(), droneID)
	if err != nil || d == nil || d.OrganizationID != orgID {
		response.BadRequest(c, "invalid drone_id")
		return
	}
	pilotID := p.ID
	if req.PilotID != "" && p.Role != rbac.RolePilot {
		pilotID, err = uuid.Parse(req.PilotID)
		if err != nil {
			response.BadRequest(c, "invalid pilot_id")
			return
		}
		pilot, err := h.identities.GetByID(c.Request.Context(), pilotID)
		if err != nil || pilot == nil || !pilot.Active ||
			pilot.OrganizationID == nil || *pilot.OrganizationID != orgID {
			response.BadRequest(c, "invalid pilot_id")
			return
		}
	}
	orderID, ok := h.resolveOrder(c.Request.Context(), req.OrderID, orgID)
	if !ok {
		response.BadRequest(c, "invalid order_id")
		return
	}
	tookOff, err := time.Parse(time.RFC3339, req.TookOffAt)
	if err != nil {
		response.BadRequest(c, "invalid took_off_at")
		return
	}
	landed, err := time.Parse(time.RFC3339, req.LandedAt)
	if err != nil {
		response.BadRequest(c, "invalid landed_at")
		return
	}
	if !landed.After(tookOff) {
		response.BadRequest(c, "landed_at must be after took_off_at")
		return
	}
	fl := &models.FlightLog{
		OrganizationID:  orgID,
		DroneID:         droneID,
		PilotID:         pilotID,
		OrderID:         orderID,
		Location:        req.Location,
		TookOffAt:       tookOff,
		LandedAt:        landed,
		DurationSeconds: int(landed.Sub(tookOff).Seconds()),
		Notes:           req.Notes,
	}
	if err := h.store.Create(c.Request.Context(), fl); err != nil {
		h.logger.Error("create flight log", zap.Error(err))
		response.Internal(c, "failed to create flight log")
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(orgID, events.EventFlightLogFiled, gin.H{
			"flight_log_id":    fl.ID,
			"drone_id":         fl.DroneID,
			"pilot_id":         fl.PilotID,
			"duration_seconds": fl.DurationSeconds,
		})
	}
	response.Created(c, fl)
}

// Update handles PUT /flight-logs/:id.
func (h *Handler) Update(c *gin.Context) {
	p := auth.MustPrincipal(c)
	fl, ok := h.load(c, p)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Location != nil {
		fl.Location = *req.Location
	}
	if req.TookOffAt != nil {
		t, err := time.Parse(time.RFC3339, *req.TookOffAt)
		if err != nil {
			response.BadRequest(c, "invalid took_off_at")
			return
		}
		fl.TookOffAt = t
	}
	if req.LandedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.LandedAt)
		if err != nil {
			response.BadRequest(c, "invalid landed_at")
			return
		}
		fl.LandedAt = t
	}
	if !fl.LandedAt.After(fl.TookOffAt) {
		response.BadRequest(c, "landed_at must be after took_off_at")
		return
	}
	fl.DurationSeconds = int(fl.LandedAt.Sub(fl.TookOffAt).Seconds())
	if req.Notes != nil {
		fl.Notes = *req.Notes
	}
	if req.OrderID != nil {
		orderID, ok := h.resolveOrder(c.Request.Context(), *req.OrderID, fl.OrganizationID)
		if !ok {
			response.BadRequest(c, "invalid order_id")
			return
		}
		fl.OrderID = orderID
	}
	if err := h.store.Update(c.Request.Context(), fl); err != nil {
		h.logger.Error("update flight log", zap.Error(err))
		response.Internal(c, "failed to update flight log")
		return
	}
	response.OK(c, fl)
}

// Delete handles DELETE /flight-logs/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := auth.MustPrincipal(c)
	fl, ok := h.load(c, p)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), fl.ID); err != nil {
		h.logger.Error("delete flight log", zap.Error(err))
		response.Internal(c, "failed to delete flight log")
		return
	}
	if fl.AttachmentKey != "" && h.attachments != nil {
		if err := h.attachments.DeleteObject(c.Request.Context(), fl.AttachmentKey); err != nil {
			h.logger.Warn("delete flight log attachment", zap.Error(err), zap.String("key", fl.AttachmentKey))
		}
	}
	response.OK(c, gin.H{"deleted": true})
}

// Export handles GET /flight-logs/export. Builds a CSV of the
// organization's flight logs, stores it in the attachments bucket and
// returns a pre-signed download URL. Superadmins name the organization
// with ?organization_id.
func (h *Handler) Export(c *gin.Context) {
	p := auth.MustPrincipal(c)
	if h.attachments == nil {
		response.Internal(c, "attachment storage is not configured")
		return
	}
	requested, err := tenant.OrgIDFromString(c.Query("organization_id"))
	if err != nil {
		response.BadRequest(c, "invalid organization_id")
		return
	}
	orgID, err := tenant.CreateOrgID(p, requested)
	if err != nil {
		tenant.WriteScopeError(c, err)
		return
	}
	logs, err := h.store.List(c.Request.Context(), &orgID, nil, nil)
	if err != nil {
		h.logger.Error("export flight logs", zap.Error(err))
		response.Internal(c, "failed to export flight logs")
		return
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"id", "drone_id", "pilot_id", "order_id", "location", "took_off_at", "landed_at", "duration_seconds"})
	for _, fl := range logs {
		orderID := ""
		if fl.OrderID != nil {
			orderID = fl.OrderID.String()
		}
		_ = cw.Write([]string{
			fl.ID.String(),
			fl.DroneID.String(),
			fl.PilotID.String(),
			orderID,
			fl.Location,
			fl.TookOffAt.UTC().Format(time.RFC3339),
			fl.LandedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(fl.DurationSeconds),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write export csv", zap.Error(err))
		response.Internal(c, "failed to export flight logs")
		return
	}
	key := storage.ExportKey(orgID.String(), "flight-logs-"+time.Now().UTC().Format("20060102-150405")+".csv")
	if err := h.attachments.Upload(c.Request.Context(), key, "text/csv", &buf); err != nil {
		h.logger.Error("upload export", zap.Error(err))
		response.Internal(c, "failed to export flight logs")
		return
	}
	url, err := h.attachments.PresignDownload(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign export download", zap.Error(err))
		response.Internal(c, "failed to export flight logs")
		return
	}
	response.OK(c, gin.H{"download_url": url, "rows": len(logs)})
}

// AttachmentUploadURL handles POST /flight-logs/:id/attachment-upload-url.
// Returns a pre-signed PUT URL and records the object key on the log.
func (h *Handler) AttachmentUploadURL(c *gin.Context) {
	p := auth.MustPrincipal(c)
	fl, ok := h.load(c, p)
	if !ok {
		return
	}
	if h.attachments == nil {
		response.Internal(c, "attachment storage is not configured")
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
	key := storage.FlightLogKey(fl.OrganizationID.String(), fl.ID.String(), req.Filename)
	url, err := h.attachments.PresignUpload(c.Request.Context(), key, storage.ContentTypeForFilename(req.Filename))
	if err != nil {
		h.logger.Error("presign flight log upload", zap.Error(err))
		response.Internal(c, "failed to create upload URL")
		return
	}
	if err := h.store.UpdateAttachmentKey(c.Request.Context(), fl.ID, key); err != nil {
		h.logger.Error("store attachment key", zap.Error(err))
		response.Internal(c, "failed to create upload URL")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "content_type": storage.ContentTypeForFilename(req.Filename)})
}

// AttachmentURL handles GET /flight-logs/:id/attachment-url.
func (h *Handler) AttachmentURL(c *gin.Context) {
	p := auth.MustPrincipal(c)
	fl, ok := h.load(c, p)
	if !ok {
		return
	}
	if fl.AttachmentKey == "" {
		response.NotFound(c, "flight log has no attachment")
		return
	}
	if h.attachments == nil {
		response.Internal(c, "attachment storage is not configured")
		return
	}
	url, err := h.attachments.PresignDownload(c.Request.Context(), fl.AttachmentKey)
	if err != nil {
		h.logger.Error("presign flight log download", zap.Error(err))
		response.Internal(c, "failed to create download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
