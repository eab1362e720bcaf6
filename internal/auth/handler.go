package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aerosky-ops/backend/internal/models"
	"github.com/aerosky-ops/backend/pkg/response"
	"github.com/aerosky-ops/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login and POST /mobile/auth/login.
// Login may be a username or an email; both namespaces are checked.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the mobile auth response with a bearer token.
type TokenResponse struct {
	Token string                `json:"token"`
	User  models.IdentityPublic `json:"user"`
}

// Handler handles auth HTTP endpoints. It shares the resolver's
// IdentityStore surface for credential lookups.
type Handler struct {
	repo         IdentityStore
	sessions     *SessionStore
	jwt          *JWTService
	cookieSecure bool
	logger       *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo IdentityStore, sessions *SessionStore, jwt *JWTService, cookieSecure bool, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, sessions: sessions, jwt: jwt, cookieSecure: cookieSecure, logger: logger}
}

// authenticate checks login (username or email) and password against the
// stored hash. Wrong login, wrong password, and disabled accounts all
// return nil so the caller answers a uniform 401.
func (h *Handler) authenticate(ctx context.Context, login, password string) *models.Identity {
	identity, err := h.repo.GetByLogin(ctx, login)
	if err != nil {
		return nil
	}
	if identity == nil {
		identity, err = h.repo.GetByEmail(ctx, login)
		if err != nil || identity == nil {
			return nil
		}
	}
	if !identity.Active {
		return nil
	}
	if !utils.CheckPassword(password, identity.Password) {
		return nil
	}
	return identity
}

// Login handles POST /auth/login. Issues a session cookie for the dashboard.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "login and password required")
		return
	}
	identity := h.authenticate(c.Request.Context(), req.Login, req.Password)
	if identity == nil {
		response.Unauthorized(c, "invalid login or password")
		return
	}
	sessionID, err := h.sessions.Create(c.Request.Context(), SessionData{
		IdentityID: identity.ID,
		Login:      identity.Login,
		Email:      identity.Email,
	})
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	c.SetCookie(SessionCookie, sessionID, int(h.sessions.TTL().Seconds()), "/", "", h.cookieSecure, true)
	response.OK(c, identity.ToPublic())
}

// Logout handles POST /auth/logout. Deletes the session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(SessionCookie); err == nil && sessionID != "" {
		_ = h.sessions.Delete(c.Request.Context(), sessionID)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", h.cookieSecure, true)
	response.OK(c, gin.H{"logged_out": true})
}

// MobileLogin handles POST /mobile/auth/login. Issues a bearer token.
func (h *Handler) MobileLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "login and password required")
		return
	}
	identity := h.authenticate(c.Request.Context(), req.Login, req.Password)
	if identity == nil {
		response.Unauthorized(c, "invalid login or password")
		return
	}
	token, err := h.jwt.Generate(identity.ID, identity.Login, string(identity.Role))
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: identity.ToPublic()})
}

// Me handles GET /auth/me for both path families.
func (h *Handler) Me(c *gin.Context) {
	p := MustPrincipal(c)
	identity, err := h.repo.GetByID(c.Request.Context(), p.ID)
	if err != nil || identity == nil {
		response.NotFound(c, "identity not found")
		return
	}
	response.OK(c, gin.H{"user": identity.ToPublic(), "auth_mode": p.Mode})
}
