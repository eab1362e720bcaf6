package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/internal/rbac"
	"github.com/aerosky-ops/backend/pkg/utils"
)

func newLoginEnv(t *testing.T, identities ...*models.Identity) (*gin.Engine, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := NewJWTService("test-secret", 1)
	h := NewHandler(&fakeIdentityStore{identities: identities}, nil, tokens, false, zap.NewNop())
	r := gin.New()
	r.POST("/mobile/auth/login", h.MobileLogin)
	return r, tokens
}

func loginIdentity(t *testing.T, password string, active bool) *models.Identity {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	orgID := uuid.New()
	return &models.Identity{
		ID:             uuid.New(),
		Login:          "pilot1",
		Email:          "pilot1@example.com",
		Password:       hash,
		Role:           rbac.RolePilot,
		OrganizationID: &orgID,
		Active:         active,
	}
}

func postLogin(t *testing.T, r *gin.Engine, login, password string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(LoginRequest{Login: login, Password: password}))
	req := httptest.NewRequest(http.MethodPost, "/mobile/auth/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMobileLoginIssuesUsableToken(t *testing.T) {
	identity := loginIdentity(t, "correct horse", true)
	r, tokens := newLoginEnv(t, identity)

	w := postLogin(t, r, identity.Login, "correct horse")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	assert.Equal(t, identity.ID, body.Data.User.ID)

	claims, err := tokens.Validate(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.UserID)
	assert.Equal(t, identity.Login, claims.Login)
}

func TestMobileLoginAcceptsEmail(t *testing.T) {
	identity := loginIdentity(t, "correct horse", true)
	r, _ := newLoginEnv(t, identity)

	w := postLogin(t, r, identity.Email, "correct horse")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMobileLoginRejectsWrongPassword(t *testing.T) {
	identity := loginIdentity(t, "correct horse", true)
	r, _ := newLoginEnv(t, identity)

	w := postLogin(t, r, identity.Login, "battery staple")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestMobileLoginRejectsUnknownLogin(t *testing.T) {
	r, _ := newLoginEnv(t, loginIdentity(t, "correct horse", true))

	w := postLogin(t, r, "nobody", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMobileLoginRejectsDisabledAccount(t *testing.T) {
	identity := loginIdentity(t, "correct horse", false)
	r, _ := newLoginEnv(t, identity)

	w := postLogin(t, r, identity.Login, "correct horse")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestMobileLoginRejectsMissingFields(t *testing.T) {
	r, _ := newLoginEnv(t)

	w := postLogin(t, r, "pilot1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
