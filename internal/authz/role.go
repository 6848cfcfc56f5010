package authz

// Role is the closed set of roles a tenant profile can hold. A profile
// carries exactly one role; capability differences are expressed through
// the permission table, never by branching on role identity outside this
// package.
type Role string

const (
	// RoleSuperAdmin is the platform operator. Not bound to a clinic.
	RoleSuperAdmin Role = "super_admin"
	// RoleClinicManager administers a single clinic.
	RoleClinicManager Role = "clinic_manager"
	// RoleTherapist delivers treatment within a clinic.
	RoleTherapist Role = "therapist"
	// RoleReceptionist handles front-desk operations within a clinic.
	RoleReceptionist Role = "receptionist"
	// RolePatient is a clinic's end user.
	RolePatient Role = "patient"
)

// AllRoles returns every defined role.
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleClinicManager,
		RoleTherapist,
		RoleReceptionist,
		RolePatient,
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleClinicManager, RoleTherapist, RoleReceptionist, RolePatient:
		return true
	}
	return false
}

// IsAdministrative reports whether the role may enter the administrative
// route areas (user management, configuration).
func (r Role) IsAdministrative() bool {
	return r == RoleSuperAdmin || r == RoleClinicManager
}
