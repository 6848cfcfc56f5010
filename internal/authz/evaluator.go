// Package authz holds the role and permission model and the evaluation
// rule deciding whether a profile may exercise a capability. Everything
// here is pure: no I/O, no error paths, safe under arbitrary concurrency.
package authz

// Subject is the profile view the evaluator needs. Implementations must
// tolerate a nil receiver so that an absent profile evaluates as inactive.
type Subject interface {
	SubjectRole() Role
	SubjectActive() bool
}

// Can reports whether the subject may exercise the permission. Absence of
// a grant is an ordinary false, never an error.
//
// Evaluation order: absent or inactive subjects are denied everything;
// super admins are granted everything; clinic managers are granted
// everything outside ClinicManagementExclusions; every other role is
// checked against its enumerated grant set.
func Can(sub Subject, perm Permission) bool {
	if sub == nil || !sub.SubjectActive() {
		return false
	}
	switch sub.SubjectRole() {
	case RoleSuperAdmin:
		return true
	case RoleClinicManager:
		return !isClinicManagementExclusion(perm)
	default:
		_, ok := PermissionsFor(sub.SubjectRole())[perm]
		return ok
	}
}
