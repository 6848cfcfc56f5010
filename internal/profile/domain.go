// Package profile resolves session tokens into tenant profiles and owns
// the profile's lifecycle within a request. Profiles are values scoped to
// one request context, never process-wide state.
package profile

import (
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/authz"
)

// Principal is the authenticated identity produced by session validation,
// independent of any tenant assignment.
type Principal struct {
	ID    uuid.UUID
	Email string
}

// TenantProfile is a principal's role and tenant assignment. TenantID is
// uuid.Nil for platform-scoped profiles (super admins).
type TenantProfile struct {
	PrincipalID uuid.UUID
	Role        authz.Role
	TenantID    uuid.UUID
	Active      bool
	DisplayName string
	Settings    map[string]string

	// Impersonating marks an overlay profile produced by an active
	// "view as tenant" binding. Audit attribution records both the
	// acting principal and the assumed tenant when this is set.
	Impersonating bool

	// HomeTenantID is only set on overlays: the tenant the profile held
	// before the binding, so ending impersonation can restore it.
	HomeTenantID uuid.UUID
}

// SubjectRole implements authz.Subject.
func (p *TenantProfile) SubjectRole() authz.Role {
	if p == nil {
		return ""
	}
	return p.Role
}

// SubjectActive implements authz.Subject.
func (p *TenantProfile) SubjectActive() bool {
	return p != nil && p.Active
}

// Clone returns a deep copy. Overlay profiles are always copies so the
// stored profile can never be mutated through them.
func (p *TenantProfile) Clone() *TenantProfile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Settings != nil {
		cp.Settings = make(map[string]string, len(p.Settings))
		for k, v := range p.Settings {
			cp.Settings[k] = v
		}
	}
	return &cp
}

// WithTenant returns an overlay copy of the profile scoped to the given
// tenant. The copy is flagged as impersonating and remembers the home
// tenant; retargeting an existing overlay keeps the original home.
func (p *TenantProfile) WithTenant(tenantID uuid.UUID) *TenantProfile {
	cp := p.Clone()
	if cp == nil {
		return nil
	}
	if !p.Impersonating {
		cp.HomeTenantID = p.TenantID
	}
	cp.TenantID = tenantID
	cp.Impersonating = true
	return cp
}

// WithoutOverlay undoes WithTenant: the returned copy is scoped to the
// home tenant with the impersonation flag cleared. On a profile that is
// not an overlay it is just a clone.
func (p *TenantProfile) WithoutOverlay() *TenantProfile {
	cp := p.Clone()
	if cp == nil || !cp.Impersonating {
		return cp
	}
	cp.TenantID = cp.HomeTenantID
	cp.Impersonating = false
	cp.HomeTenantID = uuid.Nil
	return cp
}

// Patch describes a partial profile update. Nil fields are left unchanged.
type Patch struct {
	Role        *authz.Role
	TenantID    *uuid.UUID
	Active      *bool
	DisplayName *string
	Settings    map[string]string
}
