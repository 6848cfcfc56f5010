package authz

// rolePermissions enumerates the granted set for the roles whose grants
// are explicit. SuperAdmin and ClinicManager are computed in
// PermissionsFor and intentionally absent here.
var rolePermissions = map[Role][]Permission{
	RoleTherapist: {
		PermPatientsView,
		PermPatientsCreate,
		PermPatientsUpdate,
		PermAppointmentsView,
		PermAppointmentsCreate,
		PermAppointmentsUpdate,
		PermExercisesView,
		PermExercisesPrescribe,
		PermExercisesUpdate,
		PermExercisesDelete,
		PermPaymentsViewOwn,
	},
	RoleReceptionist: {
		PermPatientsView,
		PermPatientsCreate,
		PermAppointmentsView,
		PermAppointmentsCreate,
		PermAppointmentsUpdate,
		PermAppointmentsCancel,
		PermPaymentsViewAll,
		PermPaymentsCreate,
	},
	RolePatient: {
		PermAppointmentsView,
		PermExercisesView,
		PermPaymentsViewOwn,
	},
}

// PermissionsFor returns the full permission set granted to a role. Pure
// and total: every defined role yields a set, an unknown role yields the
// empty set.
func PermissionsFor(role Role) map[Permission]struct{} {
	switch role {
	case RoleSuperAdmin:
		return permissionSet(AllPermissions())
	case RoleClinicManager:
		set := permissionSet(AllPermissions())
		for _, excl := range ClinicManagementExclusions {
			delete(set, excl)
		}
		return set
	default:
		return permissionSet(rolePermissions[role])
	}
}

func permissionSet(perms []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
