package auth

import "time"

// Role identifies an administrative role. The permission set a role grants is
// defined exclusively by the Catalog; nothing is inferred from the role name.
type Role string

const (
	RoleSuperAdmin      Role = "SUPER_ADMIN"
	RoleComplianceAdmin Role = "COMPLIANCE_ADMIN"
	RoleReviewer        Role = "REVIEWER"
)

// Permission is a fine-grained administrative capability.
type Permission string

const (
	PermPractitionerView   Permission = "practitioner.view"
	PermDispensaryView     Permission = "dispensary.view"
	PermPractitionerDecide Permission = "practitioner.approve_reject"
	PermDispensaryDecide   Permission = "dispensary.approve_reject"
	PermAuditView          Permission = "audit.view"
	PermAccountTerminate   Permission = "account.terminate"
	PermCredentialReset    Permission = "account.credential_reset"
	PermAdminManage        Permission = "admin.manage"
)

// Actor is an internal staff identity. Permissions are a snapshot of the
// Catalog taken when the actor was created; they are never edited per user.
type Actor struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	PasswordHash string                  `json:"-"`
	Role         Role                    `json:"role"`
	Permissions  map[Permission]struct{} `json:"-"`
	CreatedAt    time.Time               `json:"created_at"`
}

// HasPermission reports whether the actor holds the given permission.
func (a Actor) HasPermission(p Permission) bool {
	_, ok := a.Permissions[p]
	return ok
}

// PermissionList returns the actor's permissions as a sorted-free slice,
// useful for serialization.
func (a Actor) PermissionList() []Permission {
	out := make([]Permission, 0, len(a.Permissions))
	for p := range a.Permissions {
		out = append(out, p)
	}
	return out
}
