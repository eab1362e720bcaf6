// Package rbac maps roles to static permission sets. Permissions are
// "resource:action" strings; the table is built once at init and never
// mutated, so every check is a plain set lookup.
package rbac

// Role is a platform or organization role. Each identity has exactly one.
type Role string

const (
	// RoleSuperAdmin is the platform role, exempt from tenant scoping and
	// implicitly granted every permission.
	RoleSuperAdmin Role = "superadmin"
	RoleOrgAdmin   Role = "org_admin"
	RoleOpsManager Role = "ops_manager"
	RolePilot      Role = "pilot"
	RoleViewer     Role = "viewer"
)

// Action is one of the four CRUD actions checked against a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Resource type names used in permission strings and route guards.
const (
	ResourceOrganization  = "organization"
	ResourceMember        = "member"
	ResourceDrone         = "drone"
	ResourceBattery       = "battery"
	ResourceSubcontractor = "subcontractor"
	ResourceOrder         = "order"
	ResourceFlightLog     = "flight_log"
	ResourceInventory     = "inventory_item"
	ResourceInventoryTx   = "inventory_transaction"
	ResourceReimbursement = "reimbursement"
	ResourceTicket        = "ticket"
)

// AllResources lists every resource type known to the permission table.
var AllResources = []string{
	ResourceOrganization,
	ResourceMember,
	ResourceDrone,
	ResourceBattery,
	ResourceSubcontractor,
	ResourceOrder,
	ResourceFlightLog,
	ResourceInventory,
	ResourceInventoryTx,
	ResourceReimbursement,
	ResourceTicket,
}

// Permission composes the canonical permission name for a resource/action pair.
func Permission(resource string, action Action) string {
	return resource + ":" + string(action)
}

// grant is one row of the static role/permission table.
type grant struct {
	resource string
	actions  []Action
}

var allActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// roleGrants is the source table. RoleSuperAdmin is intentionally absent:
// it short-circuits in HasPermission and needs no explicit grants.
var roleGrants = map[Role][]grant{
	RoleOrgAdmin: {
		{ResourceOrganization, []Action{ActionView, ActionEdit}},
		{ResourceMember, allActions},
		{ResourceDrone, allActions},
		{ResourceBattery, allActions},
		{ResourceSubcontractor, allActions},
		{ResourceOrder, allActions},
		{ResourceFlightLog, allActions},
		{ResourceInventory, allActions},
		{ResourceInventoryTx, []Action{ActionView, ActionCreate}},
		{ResourceReimbursement, allActions},
		{ResourceTicket, allActions},
	},
	RoleOpsManager: {
		{ResourceOrganization, []Action{ActionView}},
		{ResourceMember, []Action{ActionView}},
		{ResourceDrone, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceBattery, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceSubcontractor, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceOrder, allActions},
		{ResourceFlightLog, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceInventory, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceInventoryTx, []Action{ActionView, ActionCreate}},
		{ResourceReimbursement, []Action{ActionView, ActionEdit}},
		{ResourceTicket, []Action{ActionView, ActionCreate, ActionEdit}},
	},
	RolePilot: {
		{ResourceOrganization, []Action{ActionView}},
		{ResourceDrone, []Action{ActionView}},
		{ResourceBattery, []Action{ActionView}},
		{ResourceOrder, []Action{ActionView}},
		{ResourceFlightLog, []Action{ActionView, ActionCreate, ActionEdit}},
		{ResourceInventory, []Action{ActionView}},
		{ResourceInventoryTx, []Action{ActionView}},
		{ResourceReimbursement, []Action{ActionView, ActionCreate}},
		{ResourceTicket, []Action{ActionView, ActionCreate}},
	},
	RoleViewer: {
		{ResourceOrganization, []Action{ActionView}},
		{ResourceMember, []Action{ActionView}},
		{ResourceDrone, []Action{ActionView}},
		{ResourceBattery, []Action{ActionView}},
		{ResourceSubcontractor, []Action{ActionView}},
		{ResourceOrder, []Action{ActionView}},
		{ResourceFlightLog, []Action{ActionView}},
		{ResourceInventory, []Action{ActionView}},
		{ResourceInventoryTx, []Action{ActionView}},
		{ResourceReimbursement, []Action{ActionView}},
		{ResourceTicket, []Action{ActionView}},
	},
}

// rolePermissions is the precomputed role -> permission set table.
var rolePermissions = buildPermissionSets()

func buildPermissionSets() map[Role]map[string]struct{} {
	table := make(map[Role]map[string]struct{}, len(roleGrants))
	for role, grants := range roleGrants {
		set := make(map[string]struct{})
		for _, g := range grants {
			for _, a := range g.actions {
				set[Permission(g.resource, a)] = struct{}{}
			}
		}
		table[role] = set
	}
	return table
}

// HasPermission reports whether the role holds the named permission.
// Superadmin is always true. Unknown roles are always false.
func HasPermission(role Role, permission string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// CanAccess reports whether the role may perform action on the resource type.
func CanAccess(role Role, resource string, action Action) bool {
	return HasPermission(role, Permission(resource, action))
}

// ParseRole validates a role string. Returns false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin, RoleOrgAdmin, RoleOpsManager, RolePilot, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// IsSuperAdmin reports whether the role is the platform role.
func IsSuperAdmin(role Role) bool {
	return role == RoleSuperAdmin
}
