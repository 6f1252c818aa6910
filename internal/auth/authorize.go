package auth

// Authorize reports whether the actor may perform the action identified by
// perm. It is a pure membership test with no side effects: a false result is
// converted into a visible permission_denied error at the HTTP boundary, never
// here.
func Authorize(actor Actor, perm Permission) bool {
	return actor.HasPermission(perm)
}
