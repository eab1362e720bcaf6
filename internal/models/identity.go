package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aerosky-ops/backend/internal/rbac"
)

// Identity is an account that can sign in: a platform superadmin or an
// organization team member. Superadmins have no organization.
type Identity struct {
	ID             uuid.UUID  `json:"id"`
	Login          string     `json:"login"`
	Email          string     `json:"email,omitempty"`
	Password       string     `json:"-"` // bcrypt hash
	FullName       string     `json:"full_name"`
	Role           rbac.Role  `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IdentityPublic is the API shape of an identity, without credentials.
type IdentityPublic struct {
	ID             uuid.UUID  `json:"id"`
	Login          string     `json:"login"`
	Email          string     `json:"email,omitempty"`
	FullName       string     `json:"full_name"`
	Role           rbac.Role  `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToPublic strips credential fields for API responses.
func (i *Identity) ToPublic() IdentityPublic {
	return IdentityPublic{
		ID:             i.ID,
		Login:          i.Login,
		Email:          i.Email,
		FullName:       i.FullName,
		Role:           i.Role,
		OrganizationID: i.OrganizationID,
		Active:         i.Active,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}
