package shared

// Canonical module names used by the bundled administrative surface. These
// are conventions, not enum constraints: the permissions table accepts
// arbitrary module/action strings.
const (
	ModuleUsers       = "Users"
	ModuleGroups      = "Groups"
	ModuleRoles       = "Roles"
	ModuleModules     = "Modules"
	ModulePermissions = "Permissions"
)

// Canonical actions.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// CanonicalModules lists the modules the back office manages itself.
func CanonicalModules() []string {
	return []string{
		ModuleUsers,
		ModuleGroups,
		ModuleRoles,
		ModuleModules,
		ModulePermissions,
	}
}

// CanonicalActions lists the conventional CRUD actions.
func CanonicalActions() []string {
	return []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}
