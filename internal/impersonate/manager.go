// Package impersonate lets a platform super admin temporarily act within
// one clinic's scope. The binding lives in the caller's session, so it is
// per-session by construction and cannot outlive it.
package impersonate

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// SessionKey holds the assumed tenant ID while a binding is active.
const SessionKey = "impersonated_tenant"

// ErrImpersonationNotAllowed is returned when anyone but an active super
// admin attempts to assume a tenant. State is left untouched.
var ErrImpersonationNotAllowed = errors.New("impersonation not allowed")

// ErrInvalidTenant is returned for a zero target tenant ID.
var ErrInvalidTenant = errors.New("impersonation target tenant required")

// Manager drives the impersonation state machine. The original profile is
// never stored: it is re-resolved from the profile store on every request,
// and overlays are copies, so it is immutable through a binding by
// construction.
type Manager struct {
	logger *slog.Logger
}

// NewManager constructs a Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// AssumeTenant starts or retargets impersonation. Re-assuming while a
// binding is active replaces the assumed tenant only; it never stacks.
// Returns the overlay profile scoped to the target tenant.
func (m *Manager) AssumeTenant(sess *shared.Session, prof *profile.TenantProfile, target uuid.UUID) (*profile.TenantProfile, error) {
	if !canImpersonate(prof) {
		return nil, ErrImpersonationNotAllowed
	}
	if target == uuid.Nil {
		return nil, ErrInvalidTenant
	}
	sess.Set(SessionKey, target.String())
	if m.logger != nil {
		m.logger.Info("impersonation started",
			slog.String("principal_id", prof.PrincipalID.String()),
			slog.String("tenant_id", target.String()))
	}
	return prof.WithTenant(target), nil
}

// StopImpersonating clears the binding and returns the profile restored
// to its home tenant scope, with the overlay flag cleared. Calling it
// without an active binding is a no-op.
func (m *Manager) StopImpersonating(sess *shared.Session, prof *profile.TenantProfile) *profile.TenantProfile {
	if sess.Get(SessionKey) == "" {
		return prof
	}
	sess.Delete(SessionKey)
	if m.logger != nil && prof != nil {
		m.logger.Info("impersonation stopped",
			slog.String("principal_id", prof.PrincipalID.String()))
	}
	return prof.WithoutOverlay()
}

// Overlay applies an active binding to a freshly resolved profile. When
// the binding no longer passes validation (the profile was refreshed and
// is no longer an active super admin, or the stored tenant ID is corrupt)
// the binding is cleared rather than silently carried over.
func (m *Manager) Overlay(sess *shared.Session, prof *profile.TenantProfile) *profile.TenantProfile {
	raw := sess.Get(SessionKey)
	if raw == "" {
		return prof
	}
	target, err := uuid.Parse(raw)
	if err != nil || target == uuid.Nil || !canImpersonate(prof) {
		sess.Delete(SessionKey)
		if m.logger != nil {
			m.logger.Warn("stale impersonation binding cleared")
		}
		return prof
	}
	return prof.WithTenant(target)
}

// IsImpersonating reports whether the session carries an active binding.
func (m *Manager) IsImpersonating(sess *shared.Session) bool {
	return sess.Get(SessionKey) != ""
}

// AssumedTenant returns the bound tenant ID when impersonating.
func (m *Manager) AssumedTenant(sess *shared.Session) (uuid.UUID, bool) {
	raw := sess.Get(SessionKey)
	if raw == "" {
		return uuid.Nil, false
	}
	target, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return target, true
}

// canImpersonate gates the state machine. Only an active super admin may
// hold a binding; the role comparison is the contract here, not a
// capability lookup, because the clinic manager grant rule ("everything
// minus the management exclusions") would otherwise leak any new
// impersonation permission to clinic managers.
func canImpersonate(prof *profile.TenantProfile) bool {
	return prof.SubjectActive() && prof.SubjectRole() == authz.RoleSuperAdmin
}
