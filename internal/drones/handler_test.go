package drones

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
	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
)

type fakeStore struct {
	drones  map[uuid.UUID]*models.Drone
	creates int
	updates int
	deletes int
}

func newFakeStore(drones ...*models.Drone) *fakeStore {
	s := &fakeStore{drones: make(map[uuid.UUID]*models.Drone)}
	for _, d := range drones {
		s.drones[d.ID] = d
	}
	return s
}

func (s *fakeStore) List(_ context.Context, orgID *uuid.UUID) ([]models.Drone, error) {
	var list []models.Drone
	for _, d := range s.drones {
		if orgID == nil || d.OrganizationID == *orgID {
			list = append(list, *d)
		}
	}
	return list, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Drone, error) {
	return s.drones[id], nil
}

func (s *fakeStore) Create(_ context.Context, d *models.Drone) error {
	s.creates++
	d.ID = uuid.New()
	s.drones[d.ID] = d
	return nil
}

func (s *fakeStore) Update(_ context.Context, d *models.Drone) error {
	s.updates++
	s.drones[d.ID] = d
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.deletes++
	delete(s.drones, id)
	return nil
}

// newTestRouter registers drone routes behind a middleware injecting the
// given principal. A nil principal exercises the unauthenticated path.
func newTestRouter(store Store, p *auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", func(c *gin.Context) {
		if p != nil {
			auth.SetPrincipal(c, p)
		}
		c.Next()
	})
	RegisterRoutes(group, NewHandler(store, zap.NewNop()))
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

type errBody struct {
	Error string `json:"error"`
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func testDrone(orgID uuid.UUID) *models.Drone {
	return &models.Drone{
		ID:             uuid.New(),
		OrganizationID: orgID,
		SerialNumber:   "SN-001",
		Model:          "M350",
		Status:         models.DroneStatusActive,
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	r := newTestRouter(newFakeStore(), nil)
	w := doJSON(t, r, http.MethodGet, "/drones", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestViewerCannotCreate(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, principal(rbac.RoleViewer, &orgID))

	w := doJSON(t, r, http.MethodPost, "/drones", gin.H{"serial_number": "SN-1", "model": "M350"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body.Error, "drone:create")
	assert.Zero(t, store.creates, "denied request must not reach the store")
}

func TestListScopedToOwnOrganization(t *testing.T) {
	orgID := uuid.New()
	otherOrg := uuid.New()
	mine := testDrone(orgID)
	theirs := testDrone(otherOrg)
	store := newFakeStore(mine, theirs)

	r := newTestRouter(store, principal(rbac.RoleOpsManager, &orgID))
	w := doJSON(t, r, http.MethodGet, "/drones", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.Drone `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, mine.ID, body.Data[0].ID)
}

func TestUnassignedMemberSeesEmptyList(t *testing.T) {
	store := newFakeStore(testDrone(uuid.New()))
	r := newTestRouter(store, principal(rbac.RoleOpsManager, nil))

	w := doJSON(t, r, http.MethodGet, "/drones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Drone `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
}

func TestCrossTenantAccessLooksLikeMissingRow(t *testing.T) {
	orgID := uuid.New()
	theirs := testDrone(uuid.New())
	store := newFakeStore(theirs)
	r := newTestRouter(store, principal(rbac.RoleOrgAdmin, &orgID))

	for _, tc := range []struct {
		method string
		body   interface{}
	}{
		{http.MethodGet, nil},
		{http.MethodPut, gin.H{"model": "M30"}},
		{http.MethodDelete, nil},
	} {
		w := doJSON(t, r, tc.method, "/drones/"+theirs.ID.String(), tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s must answer 404 for a foreign row", tc.method)
	}
	assert.Zero(t, store.updates)
	assert.Zero(t, store.deletes)
}

func TestCreateOverridesClientOrganization(t *testing.T) {
	orgID := uuid.New()
	foreign := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, principal(rbac.RoleOrgAdmin, &orgID))

	w := doJSON(t, r, http.MethodPost, "/drones", gin.H{
		"serial_number":   "SN-9",
		"model":           "M350",
		"organization_id": foreign.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data models.Drone `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, orgID, body.Data.OrganizationID, "client-supplied organization must be ignored")
}

func TestSuperAdminCreateRequiresOrganization(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, principal(rbac.RoleSuperAdmin, nil))

	w := doJSON(t, r, http.MethodPost, "/drones", gin.H{"serial_number": "SN-1", "model": "M350"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.creates)

	target := uuid.New()
	w = doJSON(t, r, http.MethodPost, "/drones", gin.H{
		"serial_number":   "SN-1",
		"model":           "M350",
		"organization_id": target.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Data models.Drone `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, target, body.Data.OrganizationID)
}

func TestUpdateIgnoresOrganizationForMembers(t *testing.T) {
	orgID := uuid.New()
	d := testDrone(orgID)
	store := newFakeStore(d)
	r := newTestRouter(store, principal(rbac.RoleOrgAdmin, &orgID))

	w := doJSON(t, r, http.MethodPut, "/drones/"+d.ID.String(), gin.H{
		"status":          models.DroneStatusMaintenance,
		"organization_id": uuid.New().String(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orgID, store.drones[d.ID].OrganizationID)
	assert.Equal(t, models.DroneStatusMaintenance, store.drones[d.ID].Status)
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, principal(rbac.RoleOrgAdmin, &orgID))

	w := doJSON(t, r, http.MethodPost, "/drones", gin.H{
		"serial_number": "SN-1",
		"model":         "M350",
		"status":        "flying",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.creates)
}

func TestGetInvalidID(t *testing.T) {
	orgID := uuid.New()
	r := newTestRouter(newFakeStore(), principal(rbac.RoleViewer, &orgID))
	w := doJSON(t, r, http.MethodGet, "/drones/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
