package authz

// Permission is an atomic capability tag. The set is closed and versioned
// with the codebase: introducing a capability is a code change, never
// runtime data.
type Permission string

const (
	PermPatientsView   Permission = "patients.view"
	PermPatientsCreate Permission = "patients.create"
	PermPatientsUpdate Permission = "patients.update"
	PermPatientsDelete Permission = "patients.delete"

	PermAppointmentsView   Permission = "appointments.view"
	PermAppointmentsCreate Permission = "appointments.create"
	PermAppointmentsUpdate Permission = "appointments.update"
	PermAppointmentsCancel Permission = "appointments.cancel"

	PermPaymentsViewOwn Permission = "payments.view.own"
	PermPaymentsViewAll Permission = "payments.view.all"
	PermPaymentsCreate  Permission = "payments.create"
	PermPaymentsRefund  Permission = "payments.refund"

	PermExercisesView      Permission = "exercises.view"
	PermExercisesPrescribe Permission = "exercises.prescribe"
	PermExercisesUpdate    Permission = "exercises.update"
	PermExercisesDelete    Permission = "exercises.delete"

	PermUsersView Permission = "users.view"
	PermUsersEdit Permission = "users.edit"

	PermConfigurationView Permission = "configuration.view"
	PermConfigurationEdit Permission = "configuration.edit"

	// Platform-level clinic management. These are the capabilities a
	// clinic manager never receives; see ClinicManagementExclusions.
	PermClinicsViewAll        Permission = "clinics.view.all"
	PermClinicsCreate         Permission = "clinics.create"
	PermClinicsUpdateAll      Permission = "clinics.update.all"
	PermClinicsDelete         Permission = "clinics.delete"
	PermPlatformAnalyticsView Permission = "platform.analytics.view"
)

// AllPermissions returns every defined permission.
func AllPermissions() []Permission {
	return []Permission{
		PermPatientsView,
		PermPatientsCreate,
		PermPatientsUpdate,
		PermPatientsDelete,
		PermAppointmentsView,
		PermAppointmentsCreate,
		PermAppointmentsUpdate,
		PermAppointmentsCancel,
		PermPaymentsViewOwn,
		PermPaymentsViewAll,
		PermPaymentsCreate,
		PermPaymentsRefund,
		PermExercisesView,
		PermExercisesPrescribe,
		PermExercisesUpdate,
		PermExercisesDelete,
		PermUsersView,
		PermUsersEdit,
		PermConfigurationView,
		PermConfigurationEdit,
		PermClinicsViewAll,
		PermClinicsCreate,
		PermClinicsUpdateAll,
		PermClinicsDelete,
		PermPlatformAnalyticsView,
	}
}

// ClinicManagementExclusions lists the platform-scoped capabilities that a
// clinic manager is denied. Evaluation always consults this list; it is
// never duplicated at call sites.
var ClinicManagementExclusions = []Permission{
	PermClinicsViewAll,
	PermClinicsCreate,
	PermClinicsUpdateAll,
	PermClinicsDelete,
	PermPlatformAnalyticsView,
}

func isClinicManagementExclusion(p Permission) bool {
	for _, excl := range ClinicManagementExclusions {
		if p == excl {
			return true
		}
	}
	return false
}
