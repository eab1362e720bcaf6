package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims holds bearer token claims. The role claim is informational for the
// mobile client; the resolver always re-reads role and organization from the
// identity row.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	// LegacyUserID is the subject claim name used by older mobile builds.
	LegacyUserID string `json:"uid,omitempty"`
	Login        string `json:"login,omitempty"`
	Role         string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the identity id from whichever claim carries it:
// user_id, then the registered sub claim, then the legacy uid claim.
func (c *Claims) SubjectID() (uuid.UUID, bool) {
	if c.UserID != uuid.Nil {
		return c.UserID, true
	}
	if c.Subject != "" {
		if id, err := uuid.Parse(c.Subject); err == nil {
			return id, true
		}
	}
	if c.LegacyUserID != "" {
		if id, err := uuid.Parse(c.LegacyUserID); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// JWTService signs and verifies bearer tokens for mobile clients.
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate creates a new bearer token for the identity.
func (s *JWTService) Generate(identityID uuid.UUID, login, role string) (string, error) {
	claims := Claims{
		UserID: identityID,
		Login:  login,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a bearer token, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
