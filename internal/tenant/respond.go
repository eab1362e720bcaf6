package tenant

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aerosky-ops/backend/pkg/response"
)

// WriteScopeError maps a CreateOrgID failure to its HTTP response: a
// superadmin omitting the target organization is a validation error, a
// principal with no organization is denied.
func WriteScopeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrganizationRequired):
		response.BadRequest(c, "organization_id required")
	case errors.Is(err, ErrNoOrganization):
		response.Forbidden(c, "no organization assigned")
	default:
		response.Internal(c, "scope error")
	}
}

// OrgIDFromString parses an optional organization id from a request field.
// Empty input means "not supplied".
func OrgIDFromString(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
