package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aerosky-ops/backend/internal/models"
)

// IdentityStore is the identity lookup surface the resolver needs.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByLogin(ctx context.Context, login string) (*models.Identity, error)
}

// SessionReader reads a session record by its opaque id.
type SessionReader interface {
	Get(ctx context.Context, id string) (*SessionData, error)
}

// Resolver unifies session and bearer-token authentication into one
// principal per request. Session wins when both credentials are present.
type Resolver struct {
	identities IdentityStore
	sessions   SessionReader
	tokens     *JWTService
}

// NewResolver creates a principal resolver.
func NewResolver(identities IdentityStore, sessions SessionReader, tokens *JWTService) *Resolver {
	return &Resolver{identities: identities, sessions: sessions, tokens: tokens}
}

// Resolve turns request credentials into a principal. Returns nil when no
// valid credential resolves to an active identity. Malformed tokens, failed
// verification, and unknown subjects all collapse to nil so the caller
// answers a uniform 401.
func (r *Resolver) Resolve(ctx context.Context, sessionID, authorizationHeader string) *Principal {
	if p := r.resolveSession(ctx, sessionID); p != nil {
		return p
	}
	return r.resolveToken(ctx, authorizationHeader)
}

func (r *Resolver) resolveSession(ctx context.Context, sessionID string) *Principal {
	if sessionID == "" || r.sessions == nil {
		return nil
	}
	data, err := r.sessions.Get(ctx, sessionID)
	if err != nil || data == nil {
		return nil
	}
	identity := r.lookup(ctx, data.IdentityID, data.Email, data.Login)
	if identity == nil || !identity.Active {
		return nil
	}
	return NewPrincipal(identity, ModeSession)
}

func (r *Resolver) resolveToken(ctx context.Context, header string) *Principal {
	token := bearerToken(header)
	if token == "" {
		return nil
	}
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil
	}
	var identity *models.Identity
	if id, ok := claims.SubjectID(); ok {
		identity, _ = r.identities.GetByID(ctx, id)
	}
	if identity == nil && claims.Login != "" {
		identity, _ = r.identities.GetByLogin(ctx, claims.Login)
	}
	if identity == nil || !identity.Active {
		return nil
	}
	return NewPrincipal(identity, ModeToken)
}

// lookup finds the identity for a session subject: by id first, then email,
// then login identifier.
func (r *Resolver) lookup(ctx context.Context, id uuid.UUID, email, login string) *models.Identity {
	if id != uuid.Nil {
		if identity, _ := r.identities.GetByID(ctx, id); identity != nil {
			return identity
		}
	}
	if email != "" {
		if identity, _ := r.identities.GetByEmail(ctx, email); identity != nil {
			return identity
		}
	}
	if login != "" {
		if identity, _ := r.identities.GetByLogin(ctx, login); identity != nil {
			return identity
		}
	}
	return nil
}

// bearerToken extracts the token from an Authorization header. Only the
// "Bearer <token>" form counts; anything else is treated as absent.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
