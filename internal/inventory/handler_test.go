package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/events"
	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
)

type fakeStore struct {
	items        map[uuid.UUID]*models.InventoryItem
	transactions []models.InventoryTransaction
}

func newFakeStore(items ...*models.InventoryItem) *fakeStore {
	s := &fakeStore{items: make(map[uuid.UUID]*models.InventoryItem)}
	for _, i := range items {
		s.items[i.ID] = i
	}
	return s
}

func (s *fakeStore) List(_ context.Context, orgID *uuid.UUID) ([]models.InventoryItem, error) {
	var list []models.InventoryItem
	for _, i := range s.items {
		if orgID == nil || i.OrganizationID == *orgID {
			list = append(list, *i)
		}
	}
	return list, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return s.items[id], nil
}

func (s *fakeStore) Create(_ context.Context, i *models.InventoryItem) error {
	i.ID = uuid.New()
	s.items[i.ID] = i
	return nil
}

func (s *fakeStore) Update(_ context.Context, i *models.InventoryItem) error {
	s.items[i.ID] = i
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.items, id)
	return nil
}

// CreateTransaction mirrors the SQL semantics: the CHECK constraint rejects
// movements that would drive stock negative, and nothing is recorded then.
func (s *fakeStore) CreateTransaction(_ context.Context, t *models.InventoryTransaction) (*models.InventoryItem, error) {
	item := s.items[t.ItemID]
	delta := t.Quantity
	if t.Type == models.InventoryTxOut {
		delta = -delta
	}
	if item.Quantity+delta < 0 {
		return nil, &pgconn.PgError{Code: "23514", ConstraintName: "inventory_items_quantity_check"}
	}
	t.ID = uuid.New()
	item.Quantity += delta
	s.transactions = append(s.transactions, *t)
	return item, nil
}

func (s *fakeStore) ListTransactions(_ context.Context, itemID uuid.UUID) ([]models.InventoryTransaction, error) {
	var list []models.InventoryTransaction
	for _, t := range s.transactions {
		if t.ItemID == itemID {
			list = append(list, t)
		}
	}
	return list, nil
}

type capturedEvent struct {
	orgID   uuid.UUID
	event   string
	payload interface{}
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) Publish(orgID uuid.UUID, event string, payload interface{}) {
	f.events = append(f.events, capturedEvent{orgID: orgID, event: event, payload: payload})
}

func newTestRouter(store Store, publisher events.Publisher, p *auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", func(c *gin.Context) {
		if p != nil {
			auth.SetPrincipal(c, p)
		}
		c.Next()
	})
	RegisterRoutes(group, NewHandler(store, publisher, zap.NewNop()))
	return r
}

func principal(role rbac.Role, orgID *uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Login: "test", Role: role, OrganizationID: orgID, Mode: auth.ModeToken}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testItem(orgID uuid.UUID, qty, min int) *models.InventoryItem {
	return &models.InventoryItem{
		ID:             uuid.New(),
		OrganizationID: orgID,
		SKU:            "PROP-15",
		Name:           "Propeller 15in",
		Quantity:       qty,
		MinQuantity:    min,
	}
}

func TestStockMovementAdjustsQuantity(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 10, 2)
	store := newFakeStore(item)
	r := newTestRouter(store, nil, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "out", "quantity": 4})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 6, item.Quantity)
	require.Len(t, store.transactions, 1)
	assert.Equal(t, models.InventoryTxOut, store.transactions[0].Type)
}

func TestInsufficientStockRejectedAtomically(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 3, 0)
	store := newFakeStore(item)
	r := newTestRouter(store, nil, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "out", "quantity": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")
	assert.Equal(t, 3, item.Quantity, "failed movement must not change stock")
	assert.Empty(t, store.transactions, "failed movement must not be recorded")
}

func TestStockMovementValidation(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 3, 0)
	r := newTestRouter(newFakeStore(item), nil, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "sideways", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "out", "quantity": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLowStockEventPublished(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 5, 4)
	store := newFakeStore(item)
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "out", "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.EventLowStock, publisher.events[0].event)
	assert.Equal(t, orgID, publisher.events[0].orgID)
}

func TestNoLowStockEventAboveThreshold(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 10, 2)
	publisher := &fakePublisher{}
	r := newTestRouter(newFakeStore(item), publisher, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "out", "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, publisher.events)
}

func TestPilotCannotCreateMovement(t *testing.T) {
	orgID := uuid.New()
	item := testItem(orgID, 10, 2)
	store := newFakeStore(item)
	r := newTestRouter(store, nil, principal(rbac.RolePilot, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "in", "quantity": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "inventory_transaction:create")
	assert.Empty(t, store.transactions)
}

func TestCrossTenantItemHidden(t *testing.T) {
	item := testItem(uuid.New(), 10, 2)
	store := newFakeStore(item)
	myOrg := uuid.New()
	r := newTestRouter(store, nil, principal(rbac.RoleOrgAdmin, &myOrg))

	w := doJSON(t, r, http.MethodGet, "/inventory/"+item.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/inventory/"+item.ID.String()+"/transactions",
		gin.H{"type": "in", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateItemRejectsNegativeQuantity(t *testing.T) {
	orgID := uuid.New()
	r := newTestRouter(newFakeStore(), nil, principal(rbac.RoleOrgAdmin, &orgID))

	w := doJSON(t, r, http.MethodPost, "/inventory", gin.H{
		"sku":      "PROP-15",
		"name":     "Propeller",
		"quantity": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
