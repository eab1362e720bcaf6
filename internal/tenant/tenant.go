// Package tenant enforces organization-scoped data access. Every resource
// handler applies the same three rules: list queries are filtered to the
// principal's organization, direct-id access is checked against the row's
// organization, and creates force the principal's organization over any
// client-supplied value. Superadmins are exempt but must name a target
// organization explicitly when creating tenant-owned rows.
package tenant

import (
	"errors"

	"github.com/google/uuid"

	"github.com/aerosky-ops/backend/internal/auth"
)

var (
	// ErrNoOrganization means a non-superadmin principal has no organization
	// assigned yet. Treated as "no access": lists are empty, creates fail.
	ErrNoOrganization = errors.New("no organization assigned")
	// ErrOrganizationRequired means a superadmin created a tenant-owned row
	// without naming the target organization.
	ErrOrganizationRequired = errors.New("organization_id required")
)

// ListScope returns the organization filter for a list query. A nil orgID
// with ok=true means unrestricted (superadmin). ok=false means the
// principal has no organization and the result set must be empty, never
// "all rows".
func ListScope(p *auth.Principal) (orgID *uuid.UUID, ok bool) {
	if p.IsSuperAdmin() {
		return nil, true
	}
	if p.OrganizationID == nil {
		return nil, false
	}
	return p.OrganizationID, true
}

// CheckRow reports whether the principal may touch a row owned by rowOrg.
// A nil rowOrg (transiently unassigned row) is accessible to superadmins
// only. Handlers translate false into the uniform not-found response so a
// cross-tenant probe is indistinguishable from a missing row.
func CheckRow(p *auth.Principal, rowOrg *uuid.UUID) bool {
	if p.IsSuperAdmin() {
		return true
	}
	if rowOrg == nil || p.OrganizationID == nil {
		return false
	}
	return *rowOrg == *p.OrganizationID
}

// CheckRowID is CheckRow for rows whose organization column is NOT NULL.
func CheckRowID(p *auth.Principal, rowOrg uuid.UUID) bool {
	return CheckRow(p, &rowOrg)
}

// CreateOrgID decides the organization a new row belongs to. For
// non-superadmins it is always the principal's organization, overriding any
// client-supplied value. Superadmins must supply one explicitly.
func CreateOrgID(p *auth.Principal, requested *uuid.UUID) (uuid.UUID, error) {
	if p.IsSuperAdmin() {
		if requested == nil {
			return uuid.Nil, ErrOrganizationRequired
		}
		return *requested, nil
	}
	if p.OrganizationID == nil {
		return uuid.Nil, ErrNoOrganization
	}
	return *p.OrganizationID, nil
}

// ReassignOrgID decides the organization of an updated row. Only
// superadmins may move a row between organizations; for everyone else a
// client-supplied organization_id is ignored and the row stays put.
func ReassignOrgID(p *auth.Principal, requested *uuid.UUID, current uuid.UUID) uuid.UUID {
	if p.IsSuperAdmin() && requested != nil {
		return *requested
	}
	return current
}
