package reimbursements

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
	claims map[uuid.UUID]*models.Reimbursement
}

func newFakeStore(claims ...*models.Reimbursement) *fakeStore {
	s := &fakeStore{claims: make(map[uuid.UUID]*models.Reimbursement)}
	for _, rb := range claims {
		s.claims[rb.ID] = rb
	}
	return s
}

func (s *fakeStore) List(_ context.Context, orgID, memberID *uuid.UUID) ([]models.Reimbursement, error) {
	var list []models.Reimbursement
	for _, rb := range s.claims {
		if orgID != nil && rb.OrganizationID != *orgID {
			continue
		}
		if memberID != nil && rb.MemberID != *memberID {
			continue
		}
		list = append(list, *rb)
	}
	return list, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Reimbursement, error) {
	return s.claims[id], nil
}

func (s *fakeStore) Create(_ context.Context, rb *models.Reimbursement) error {
	rb.ID = uuid.New()
	s.claims[rb.ID] = rb
	return nil
}

func (s *fakeStore) Update(_ context.Context, rb *models.Reimbursement) error {
	s.claims[rb.ID] = rb
	return nil
}

func (s *fakeStore) UpdateReceiptKey(_ context.Context, id uuid.UUID, key string) error {
	s.claims[id].ReceiptKey = key
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.claims, id)
	return nil
}

type fakeIdentityStore struct {
	identities map[uuid.UUID]*models.Identity
}

func (f *fakeIdentityStore) GetByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	return f.identities[id], nil
}

type fakeReceiptStore struct {
	deletes []string
}

func (f *fakeReceiptStore) PresignUpload(_ context.Context, key, _ string) (string, error) {
	return "https://s3.test/upload/" + key, nil
}

func (f *fakeReceiptStore) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://s3.test/download/" + key, nil
}

func (f *fakeReceiptStore) DeleteObject(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type env struct {
	store      *fakeStore
	identities *fakeIdentityStore
	receipts   *fakeReceiptStore
	router     *gin.Engine
}

func newEnv(p *auth.Principal, claims ...*models.Reimbursement) *env {
	gin.SetMode(gin.TestMode)
	e := &env{
		store:      newFakeStore(claims...),
		identities: &fakeIdentityStore{identities: make(map[uuid.UUID]*models.Identity)},
		receipts:   &fakeReceiptStore{},
	}
	r := gin.New()
	group := r.Group("/", func(c *gin.Context) {
		if p != nil {
			auth.SetPrincipal(c, p)
		}
		c.Next()
	})
	RegisterRoutes(group, NewHandler(e.store, e.identities, e.receipts, zap.NewNop()))
	e.router = r
	return e
}

func (e *env) addMember(orgID uuid.UUID) uuid.UUID {
	id := uuid.New()
	e.identities.identities[id] = &models.Identity{
		ID:             id,
		Login:          "member-" + id.String()[:8],
		Role:           rbac.RolePilot,
		OrganizationID: &orgID,
		Active:         true,
	}
	return id
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

func adminPrincipal(orgID uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Login: "admin", Role: rbac.RoleOrgAdmin, OrganizationID: &orgID, Mode: auth.ModeSession}
}

func pilotPrincipal(orgID uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Login: "pilot", Role: rbac.RolePilot, OrganizationID: &orgID, Mode: auth.ModeToken}
}

func TestAdminFilesClaimForMember(t *testing.T) {
	orgID := uuid.New()
	e := newEnv(adminPrincipal(orgID))
	memberID := e.addMember(orgID)

	w := doJSON(t, e.router, http.MethodPost, "/reimbursements", gin.H{
		"description":  "battery replacement",
		"amount_cents": 12900,
		"member_id":    memberID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, e.store.claims, 1)
	for _, rb := range e.store.claims {
		assert.Equal(t, memberID, rb.MemberID)
		assert.Equal(t, models.ReimbursementPending, rb.Status)
		assert.Equal(t, "USD", rb.Currency)
	}
}

func TestAdminCannotFileForUnknownMember(t *testing.T) {
	orgID := uuid.New()
	e := newEnv(adminPrincipal(orgID))

	w := doJSON(t, e.router, http.MethodPost, "/reimbursements", gin.H{
		"description":  "battery replacement",
		"amount_cents": 12900,
		"member_id":    uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, e.store.claims)
}

func TestAdminCannotFileForForeignMember(t *testing.T) {
	orgID := uuid.New()
	e := newEnv(adminPrincipal(orgID))
	foreignMember := e.addMember(uuid.New())

	w := doJSON(t, e.router, http.MethodPost, "/reimbursements", gin.H{
		"description":  "battery replacement",
		"amount_cents": 12900,
		"member_id":    foreignMember.String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, e.store.claims)
}

func TestPilotAlwaysFilesOwnClaim(t *testing.T) {
	orgID := uuid.New()
	p := pilotPrincipal(orgID)
	e := newEnv(p)

	w := doJSON(t, e.router, http.MethodPost, "/reimbursements", gin.H{
		"description":  "fuel",
		"amount_cents": 4200,
		"member_id":    uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	for _, rb := range e.store.claims {
		assert.Equal(t, p.ID, rb.MemberID, "pilot-supplied member_id must be ignored")
	}
}

func TestPilotSeesOnlyOwnClaims(t *testing.T) {
	orgID := uuid.New()
	p := pilotPrincipal(orgID)
	mine := &models.Reimbursement{ID: uuid.New(), OrganizationID: orgID, MemberID: p.ID, Status: models.ReimbursementPending}
	theirs := &models.Reimbursement{ID: uuid.New(), OrganizationID: orgID, MemberID: uuid.New(), Status: models.ReimbursementPending}
	e := newEnv(p, mine, theirs)

	w := doJSON(t, e.router, http.MethodGet, "/reimbursements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Reimbursement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, mine.ID, body.Data[0].ID)

	w = doJSON(t, e.router, http.MethodGet, "/reimbursements/"+theirs.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPilotCannotChangeStatus(t *testing.T) {
	orgID := uuid.New()
	p := pilotPrincipal(orgID)
	mine := &models.Reimbursement{ID: uuid.New(), OrganizationID: orgID, MemberID: p.ID, Status: models.ReimbursementPending}
	e := newEnv(p, mine)

	w := doJSON(t, e.router, http.MethodPut, "/reimbursements/"+mine.ID.String(), gin.H{"status": models.ReimbursementApproved})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ReimbursementPending, e.store.claims[mine.ID].Status)
}

func TestDeleteRemovesReceiptObject(t *testing.T) {
	orgID := uuid.New()
	rb := &models.Reimbursement{
		ID:             uuid.New(),
		OrganizationID: orgID,
		MemberID:       uuid.New(),
		Status:         models.ReimbursementPending,
		ReceiptKey:     "receipts/" + orgID.String() + "/" + uuid.New().String() + "/receipt.pdf",
	}
	e := newEnv(adminPrincipal(orgID), rb)

	w := doJSON(t, e.router, http.MethodDelete, "/reimbursements/"+rb.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.store.claims)
	require.Len(t, e.receipts.deletes, 1)
	assert.Equal(t, rb.ReceiptKey, e.receipts.deletes[0])
}
