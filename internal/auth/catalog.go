package auth

// AllPermissions is the closed enumeration of administrative capabilities.
var AllPermissions = []Permission{
	PermPractitionerView,
	PermDispensaryView,
	PermPractitionerDecide,
	PermDispensaryDecide,
	PermAuditView,
	PermAccountTerminate,
	PermCredentialReset,
	PermAdminManage,
}

// Catalog is the fixed role -> permission table. It is a flat lookup: adding
// a role means adding a row here, and no role ever inherits from another.
var Catalog = map[Role][]Permission{
	RoleSuperAdmin: AllPermissions,
	RoleComplianceAdmin: {
		PermPractitionerView,
		PermDispensaryView,
		PermPractitionerDecide,
		PermDispensaryDecide,
		PermAuditView,
	},
	RoleReviewer: {
		PermPractitionerView,
		PermDispensaryView,
		PermAuditView,
	},
}

// PermissionsFor returns the catalog permission set for a role. The second
// return value is false for roles the catalog does not know.
func PermissionsFor(role Role) (map[Permission]struct{}, bool) {
	list, ok := Catalog[role]
	if !ok {
		return nil, false
	}
	set := make(map[Permission]struct{}, len(list))
	for _, p := range list {
		set[p] = struct{}{}
	}
	return set, true
}
