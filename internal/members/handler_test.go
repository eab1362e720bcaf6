package members

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
	identities map[uuid.UUID]*models.Identity
	deletes    int
}

func newFakeStore(identities ...*models.Identity) *fakeStore {
	s := &fakeStore{identities: make(map[uuid.UUID]*models.Identity)}
	for _, i := range identities {
		s.identities[i.ID] = i
	}
	return s
}

func (s *fakeStore) List(_ context.Context, orgID *uuid.UUID) ([]models.Identity, error) {
	var list []models.Identity
	for _, i := range s.identities {
		if orgID == nil || (i.OrganizationID != nil && *i.OrganizationID == *orgID) {
			list = append(list, *i)
		}
	}
	return list, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	return s.identities[id], nil
}

func (s *fakeStore) Create(_ context.Context, i *models.Identity) error {
	i.ID = uuid.New()
	s.identities[i.ID] = i
	return nil
}

func (s *fakeStore) Update(_ context.Context, i *models.Identity) error {
	s.identities[i.ID] = i
	return nil
}

func (s *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	s.identities[id].Password = hash
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.deletes++
	delete(s.identities, id)
	return nil
}

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

func testMember(orgID *uuid.UUID, role rbac.Role) *models.Identity {
	return &models.Identity{
		ID:             uuid.New(),
		Login:          "member-" + uuid.New().String()[:8],
		Role:           role,
		OrganizationID: orgID,
		Active:         true,
	}
}

func adminPrincipal(orgID uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Login: "admin", Role: rbac.RoleOrgAdmin, OrganizationID: &orgID, Mode: auth.ModeSession}
}

func TestOrgAdminCannotMintSuperAdmin(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodPost, "/members", gin.H{
		"login":    "newroot",
		"password": "longenough1",
		"role":     "superadmin",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "member:create")
	assert.Empty(t, store.identities)
}

func TestOrgAdminCannotPromoteToSuperAdmin(t *testing.T) {
	orgID := uuid.New()
	m := testMember(&orgID, rbac.RolePilot)
	store := newFakeStore(m)
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodPut, "/members/"+m.ID.String(), gin.H{"role": "superadmin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, rbac.RolePilot, store.identities[m.ID].Role)
}

func TestSuperAdminCreatesSuperAdminWithoutOrganization(t *testing.T) {
	store := newFakeStore()
	p := &auth.Principal{ID: uuid.New(), Login: "root", Role: rbac.RoleSuperAdmin, Mode: auth.ModeSession}
	r := newTestRouter(store, p)

	w := doJSON(t, r, http.MethodPost, "/members", gin.H{
		"login":    "root2",
		"password": "longenough1",
		"role":     "superadmin",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.identities, 1)
	for _, i := range store.identities {
		assert.Nil(t, i.OrganizationID)
		assert.True(t, i.Active)
		assert.NotEmpty(t, i.Password)
		assert.NotEqual(t, "longenough1", i.Password, "password must be stored hashed")
	}
	assert.NotContains(t, w.Body.String(), "password")
}

func TestCreateMemberLandsInOwnOrganization(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodPost, "/members", gin.H{
		"login":           "pilot9",
		"password":        "longenough1",
		"role":            "pilot",
		"organization_id": uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	for _, i := range store.identities {
		require.NotNil(t, i.OrganizationID)
		assert.Equal(t, orgID, *i.OrganizationID, "client-supplied organization must be ignored")
	}
}

func TestCreateMemberRejectsShortPassword(t *testing.T) {
	orgID := uuid.New()
	store := newFakeStore()
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodPost, "/members", gin.H{
		"login":    "pilot9",
		"password": "short",
		"role":     "pilot",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.identities)
}

func TestSuperAdminIdentityHiddenFromOrgAdmin(t *testing.T) {
	orgID := uuid.New()
	root := testMember(nil, rbac.RoleSuperAdmin)
	store := newFakeStore(root)
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodGet, "/members/"+root.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/members/"+root.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, store.deletes)
}

func TestCannotDeleteOwnAccount(t *testing.T) {
	orgID := uuid.New()
	p := adminPrincipal(orgID)
	self := &models.Identity{ID: p.ID, Login: p.Login, Role: rbac.RoleOrgAdmin, OrganizationID: &orgID, Active: true}
	store := newFakeStore(self)
	r := newTestRouter(store, p)

	w := doJSON(t, r, http.MethodDelete, "/members/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.deletes)
}

func TestCannotDeactivateOwnAccount(t *testing.T) {
	orgID := uuid.New()
	p := adminPrincipal(orgID)
	self := &models.Identity{ID: p.ID, Login: p.Login, Role: rbac.RoleOrgAdmin, OrganizationID: &orgID, Active: true}
	store := newFakeStore(self)
	r := newTestRouter(store, p)

	w := doJSON(t, r, http.MethodPut, "/members/"+p.ID.String(), gin.H{"active": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, store.identities[p.ID].Active)
}

func TestListNeverLeaksPasswordHashes(t *testing.T) {
	orgID := uuid.New()
	m := testMember(&orgID, rbac.RolePilot)
	m.Password = "$2a$10$secret-hash"
	store := newFakeStore(m)
	r := newTestRouter(store, adminPrincipal(orgID))

	w := doJSON(t, r, http.MethodGet, "/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")
}

func TestPilotCannotListMembers(t *testing.T) {
	orgID := uuid.New()
	p := &auth.Principal{ID: uuid.New(), Login: "p", Role: rbac.RolePilot, OrganizationID: &orgID, Mode: auth.ModeToken}
	r := newTestRouter(newFakeStore(), p)

	w := doJSON(t, r, http.MethodGet, "/members", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "member:view")
}
