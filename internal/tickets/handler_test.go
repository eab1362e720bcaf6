package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/events"
	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
)

type fakeStore struct {
	tickets  map[uuid.UUID]*models.Ticket
	messages []models.TicketMessage
}

func newFakeStore(tickets ...*models.Ticket) *fakeStore {
	s := &fakeStore{tickets: make(map[uuid.UUID]*models.Ticket)}
	for _, tk := range tickets {
		s.tickets[tk.ID] = tk
	}
	return s
}

func (s *fakeStore) List(_ context.Context, orgID *uuid.UUID, status string) ([]models.Ticket, error) {
	var list []models.Ticket
	for _, tk := range s.tickets {
		if orgID != nil && tk.OrganizationID != *orgID {
			continue
		}
		if status != "" && tk.Status != status {
			continue
		}
		list = append(list, *tk)
	}
	return list, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	return s.tickets[id], nil
}

func (s *fakeStore) CreateWithMessage(_ context.Context, t *models.Ticket, firstMessage *models.TicketMessage) error {
	t.ID = uuid.New()
	s.tickets[t.ID] = t
	firstMessage.ID = uuid.New()
	firstMessage.TicketID = t.ID
	s.messages = append(s.messages, *firstMessage)
	return nil
}

func (s *fakeStore) Update(_ context.Context, t *models.Ticket) error {
	s.tickets[t.ID] = t
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.tickets, id)
	return nil
}

func (s *fakeStore) ListMessages(_ context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	var list []models.TicketMessage
	for _, m := range s.messages {
		if m.TicketID == ticketID {
			list = append(list, m)
		}
	}
	return list, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, m *models.TicketMessage) error {
	m.ID = uuid.New()
	s.messages = append(s.messages, *m)
	return nil
}

type fakePublisher struct {
	names []string
	orgs  []uuid.UUID
}

func (f *fakePublisher) Publish(orgID uuid.UUID, event string, _ interface{}) {
	f.names = append(f.names, event)
	f.orgs = append(f.orgs, orgID)
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
	return &auth.Principal{ID: uuid.New(), Login: "test", Role: role, OrganizationID: orgID, Mode: auth.ModeSession}
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

func testTicket(orgID uuid.UUID, status string) *models.Ticket {
	return &models.Ticket{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Subject:        "drone won't arm",
		Status:         status,
		Priority:       models.TicketPriorityNormal,
		CreatedBy:      uuid.New(),
	}
}

func TestCreateTicketWithFirstMessage(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	publisher := &fakePublisher{}
	p := principal(rbac.RolePilot, &orgID)
	r := newTestRouter(store, publisher, p)

	w := doJSON(t, r, http.MethodPost, "/tickets", gin.H{
		"subject": "drone won't arm",
		"message": "ESC error 30 on startup",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, store.tickets, 1)
	require.Len(t, store.messages, 1)
	for _, tk := range store.tickets {
		assert.Equal(t, models.TicketOpen, tk.Status)
		assert.Equal(t, models.TicketPriorityNormal, tk.Priority)
		assert.Equal(t, p.ID, tk.CreatedBy)
		assert.Equal(t, tk.ID, store.messages[0].TicketID)
	}
	assert.Equal(t, p.ID, store.messages[0].AuthorID)
	assert.Equal(t, "ESC error 30 on startup", store.messages[0].Body)

	require.Len(t, publisher.names, 1)
	assert.Equal(t, events.EventTicketCreated, publisher.names[0])
	assert.Equal(t, orgID, publisher.orgs[0])
}

func TestCreateTicketRequiresMessage(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, nil, principal(rbac.RolePilot, &orgID))

	w := doJSON(t, r, http.MethodPost, "/tickets", gin.H{"subject": "no body"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.tickets)
}

func TestReplyOnTicket(t *testing.T) {
	orgID := uuid.New()
	tk := testTicket(orgID, models.TicketOpen)
	store := newFakeStore(tk)
	publisher := &fakePublisher{}
	p := principal(rbac.RoleOpsManager, &orgID)
	r := newTestRouter(store, publisher, p)

	w := doJSON(t, r, http.MethodPost, "/tickets/"+tk.ID.String()+"/messages", gin.H{"body": "try firmware 7.1"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.messages, 1)
	assert.Equal(t, tk.ID, store.messages[0].TicketID)
	assert.Equal(t, p.ID, store.messages[0].AuthorID)
	require.Len(t, publisher.names, 1)
	assert.Equal(t, events.EventTicketMessage, publisher.names[0])
}

func TestReplyOnClosedTicketRejected(t *testing.T) {
	orgID := uuid.New()
	tk := testTicket(orgID, models.TicketClosed)
	store := newFakeStore(tk)
	r := newTestRouter(store, nil, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPost, "/tickets/"+tk.ID.String()+"/messages", gin.H{"body": "too late"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.messages)
}

func TestCrossTenantTicketHidden(t *testing.T) {
	tk := testTicket(uuid.New(), models.TicketOpen)
	store := newFakeStore(tk)
	myOrg := uuid.New()
	r := newTestRouter(store, nil, principal(rbac.RoleOrgAdmin, &myOrg))

	w := doJSON(t, r, http.MethodGet, "/tickets/"+tk.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/tickets/"+tk.ID.String()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/tickets/"+tk.ID.String()+"/messages", gin.H{"body": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.messages)
}

func TestUpdateTicketStatus(t *testing.T) {
	orgID := uuid.New()
	tk := testTicket(orgID, models.TicketOpen)
	store := newFakeStore(tk)
	r := newTestRouter(store, nil, principal(rbac.RoleOpsManager, &orgID))

	w := doJSON(t, r, http.MethodPut, "/tickets/"+tk.ID.String(), gin.H{"status": models.TicketResolved})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TicketResolved, store.tickets[tk.ID].Status)

	w = doJSON(t, r, http.MethodPut, "/tickets/"+tk.ID.String(), gin.H{"status": "reopened"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewerCannotCreateTicket(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, nil, principal(rbac.RoleViewer, &orgID))

	w := doJSON(t, r, http.MethodPost, "/tickets", gin.H{"subject": "s", "message": "m"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ticket:create")
	assert.Empty(t, store.tickets)
}

func TestListFilterByStatus(t *testing.T) {
	orgID := uuid.New()
	open := testTicket(orgID, models.TicketOpen)
	closed := testTicket(orgID, models.TicketClosed)
	store := newFakeStore(open, closed)
	r := newTestRouter(store, nil, principal(rbac.RoleOrgAdmin, &orgID))

	w := doJSON(t, r, http.MethodGet, "/tickets?status=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, open.ID, body.Data[0].ID)

	w = doJSON(t, r, http.MethodGet, "/tickets?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
