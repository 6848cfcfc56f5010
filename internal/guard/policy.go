// Package guard decides, per request path, whether the resolved profile
// may proceed or must be redirected. Policies are an ordered data table;
// adding a restricted area means adding a row, not a branch.
package guard

import (
	"strings"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
)

// Route anchors the table's redirect targets.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	SuperAdmin    = "/super-admin"
)

// Requirement is the condition kind a policy row applies.
type Requirement int

const (
	// RequireAuthenticated admits any active profile.
	RequireAuthenticated Requirement = iota
	// RequireRole admits profiles whose role is in the row's set. A
	// wrong role is sent to the dashboard, never to login: the visitor
	// is authenticated, just not entitled.
	RequireRole
	// RequireAnonymous sends authenticated profiles away (login page).
	RequireAnonymous
)

// Policy is one row of the table.
type Policy struct {
	Prefix      string
	Requirement Requirement
	Roles       []authz.Role
}

// Decision is the guard's verdict. Denied is set only for the wrong-role
// case: the visitor is authenticated but not entitled, which is what the
// denial metric counts. Unauthenticated redirects are not denials.
type Decision struct {
	Allow      bool
	RedirectTo string
	Denied     bool
}

var allow = Decision{Allow: true}

func redirect(to string) Decision {
	return Decision{RedirectTo: to}
}

// DefaultPolicies is the deployed table. Order matters: the narrower
// administrative prefixes sit above the general protected area.
func DefaultPolicies() []Policy {
	adminRoles := []authz.Role{authz.RoleSuperAdmin, authz.RoleClinicManager}
	return []Policy{
		{Prefix: SuperAdmin, Requirement: RequireRole, Roles: []authz.Role{authz.RoleSuperAdmin}},
		{Prefix: DashboardPath + "/users", Requirement: RequireRole, Roles: adminRoles},
		{Prefix: DashboardPath + "/therapist-management", Requirement: RequireRole, Roles: adminRoles},
		{Prefix: DashboardPath + "/configuration", Requirement: RequireRole, Roles: adminRoles},
		{Prefix: DashboardPath, Requirement: RequireAuthenticated},
		{Prefix: LoginPath, Requirement: RequireAnonymous},
	}
}

// Evaluate walks the table top to bottom and applies the first row whose
// prefix matches the path. An inactive profile counts as absent: a
// deactivated account holds no entitlements anywhere.
func Evaluate(policies []Policy, path string, prof *profile.TenantProfile) Decision {
	authenticated := prof.SubjectActive()
	for _, p := range policies {
		if !matchesPrefix(path, p.Prefix) {
			continue
		}
		switch p.Requirement {
		case RequireAuthenticated:
			if !authenticated {
				return redirect(LoginPath)
			}
		case RequireRole:
			if !authenticated {
				return redirect(LoginPath)
			}
			if !roleIn(prof.Role, p.Roles) {
				d := redirect(DashboardPath)
				d.Denied = true
				return d
			}
		case RequireAnonymous:
			if authenticated {
				return redirect(DashboardPath)
			}
		}
		return allow
	}
	return allow
}

// matchesPrefix matches on path segment boundaries, so /dashboard matches
// /dashboard and /dashboard/patients but not /dashboard-archive.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}

func roleIn(role authz.Role, set []authz.Role) bool {
	for _, r := range set {
		if role == r {
			return true
		}
	}
	return false
}
