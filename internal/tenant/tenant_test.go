package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/aerosky-ops/backend/internal/auth"
	"github.com/aerosky-ops/backend/internal/rbac"
)

func member(role rbac.Role, orgID *uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Login: "test", Role: role, OrganizationID: orgID}
}

func TestListScope(t *testing.T) {
	orgID := uuid.New()

	t.Run("superadmin unrestricted", func(t *testing.T) {
		scope, ok := ListScope(member(rbac.RoleSuperAdmin, nil))
		assert.True(t, ok)
		assert.Nil(t, scope)
	})

	t.Run("member scoped to own org", func(t *testing.T) {
		scope, ok := ListScope(member(rbac.RoleOrgAdmin, &orgID))
		assert.True(t, ok)
		assert.Equal(t, orgID, *scope)
	})

	t.Run("unassigned member sees nothing", func(t *testing.T) {
		_, ok := ListScope(member(rbac.RoleViewer, nil))
		assert.False(t, ok)
	})
}

func TestCheckRow(t *testing.T) {
	orgID := uuid.New()
	otherID := uuid.New()

	assert.True(t, CheckRow(member(rbac.RoleSuperAdmin, nil), &otherID))
	assert.True(t, CheckRow(member(rbac.RoleSuperAdmin, nil), nil))
	assert.True(t, CheckRowID(member(rbac.RolePilot, &orgID), orgID))
	assert.False(t, CheckRowID(member(rbac.RolePilot, &orgID), otherID))
	assert.False(t, CheckRow(member(rbac.RoleOrgAdmin, &orgID), nil))
	assert.False(t, CheckRow(member(rbac.RoleOrgAdmin, nil), &orgID))
}

func TestCreateOrgID(t *testing.T) {
	orgID := uuid.New()
	otherID := uuid.New()

	t.Run("member always writes into own org", func(t *testing.T) {
		got, err := CreateOrgID(member(rbac.RoleOrgAdmin, &orgID), &otherID)
		assert.NoError(t, err)
		assert.Equal(t, orgID, got, "client-supplied organization must be overridden")
	})

	t.Run("unassigned member cannot create", func(t *testing.T) {
		_, err := CreateOrgID(member(rbac.RolePilot, nil), nil)
		assert.ErrorIs(t, err, ErrNoOrganization)
	})

	t.Run("superadmin must name a target org", func(t *testing.T) {
		_, err := CreateOrgID(member(rbac.RoleSuperAdmin, nil), nil)
		assert.ErrorIs(t, err, ErrOrganizationRequired)

		got, err := CreateOrgID(member(rbac.RoleSuperAdmin, nil), &otherID)
		assert.NoError(t, err)
		assert.Equal(t, otherID, got)
	})
}

func TestReassignOrgID(t *testing.T) {
	current := uuid.New()
	target := uuid.New()

	assert.Equal(t, target, ReassignOrgID(member(rbac.RoleSuperAdmin, nil), &target, current))
	assert.Equal(t, current, ReassignOrgID(member(rbac.RoleSuperAdmin, nil), nil, current))
	assert.Equal(t, current, ReassignOrgID(member(rbac.RoleOrgAdmin, &current), &target, current),
		"non-superadmin must not move rows between organizations")
}

func TestOrgIDFromString(t *testing.T) {
	id := uuid.New()

	got, err := OrgIDFromString(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, *got)

	got, err = OrgIDFromString("")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = OrgIDFromString("not-a-uuid")
	assert.Error(t, err)
}
