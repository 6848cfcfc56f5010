package impersonate_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/impersonate"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

func newSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return sess
}

func superAdmin() *profile.TenantProfile {
	return &profile.TenantProfile{
		PrincipalID: uuid.New(),
		Role:        authz.RoleSuperAdmin,
		Active:      true,
		DisplayName: "Platform Ops",
	}
}

func TestAssumeTenantDeniedForNonSuperAdmin(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := &profile.TenantProfile{
		PrincipalID: uuid.New(),
		Role:        authz.RoleClinicManager,
		TenantID:    uuid.New(),
		Active:      true,
	}
	before := prof.Clone()

	_, err := m.AssumeTenant(sess, prof, uuid.New())
	assert.ErrorIs(t, err, impersonate.ErrImpersonationNotAllowed)
	assert.Equal(t, before, prof, "denied attempt must leave the profile unchanged")
	assert.False(t, m.IsImpersonating(sess))
}

func TestAssumeTenantDeniedForInactiveSuperAdmin(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	prof.Active = false

	_, err := m.AssumeTenant(sess, prof, uuid.New())
	assert.ErrorIs(t, err, impersonate.ErrImpersonationNotAllowed)
}

func TestAssumeTenantOverlaysTenantOnly(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	target := uuid.New()

	overlay, err := m.AssumeTenant(sess, prof, target)
	require.NoError(t, err)
	assert.Equal(t, target, overlay.TenantID)
	assert.Equal(t, prof.PrincipalID, overlay.PrincipalID)
	assert.Equal(t, authz.RoleSuperAdmin, overlay.Role)
	assert.Equal(t, uuid.Nil, prof.TenantID, "original stays platform scoped")
	assert.True(t, m.IsImpersonating(sess))
}

func TestReassumeReplacesTargetWithoutStacking(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	t1, t2 := uuid.New(), uuid.New()

	_, err := m.AssumeTenant(sess, prof, t1)
	require.NoError(t, err)
	overlay, err := m.AssumeTenant(sess, prof, t2)
	require.NoError(t, err)
	assert.Equal(t, t2, overlay.TenantID)

	restored := m.StopImpersonating(sess, prof)
	assert.Equal(t, prof, restored, "stop restores the original, not the first overlay")
	assert.Equal(t, uuid.Nil, restored.TenantID)
	assert.False(t, m.IsImpersonating(sess))
}

func TestStopWithoutBindingIsNoop(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()

	restored := m.StopImpersonating(sess, prof)
	assert.Equal(t, prof, restored)
}

func TestAssumeTenantRejectsZeroTenant(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)

	_, err := m.AssumeTenant(sess, superAdmin(), uuid.Nil)
	assert.ErrorIs(t, err, impersonate.ErrInvalidTenant)
}

func TestOverlayAppliesBindingToFreshProfile(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	target := uuid.New()
	_, err := m.AssumeTenant(sess, prof, target)
	require.NoError(t, err)

	// Next request: profile re-resolved from the store, overlay reapplied.
	fresh := superAdmin()
	fresh.PrincipalID = prof.PrincipalID
	scoped := m.Overlay(sess, fresh)
	assert.Equal(t, target, scoped.TenantID)

	got, ok := m.AssumedTenant(sess)
	assert.True(t, ok)
	assert.Equal(t, target, got)
}

func TestOverlayClearsStaleBindingAfterDemotion(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	_, err := m.AssumeTenant(sess, prof, uuid.New())
	require.NoError(t, err)

	// The principal was demoted between requests; a refreshed profile may
	// not keep the binding.
	demoted := prof.Clone()
	demoted.Role = authz.RoleClinicManager
	scoped := m.Overlay(sess, demoted)
	assert.Equal(t, demoted, scoped)
	assert.False(t, m.IsImpersonating(sess))
}

func TestOverlayWithoutBindingReturnsProfileAsIs(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	assert.Same(t, prof, m.Overlay(sess, prof))
}

func TestStopRestoresHomeTenantFromOverlay(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	target := uuid.New()

	overlay, err := m.AssumeTenant(sess, prof, target)
	require.NoError(t, err)
	require.True(t, overlay.Impersonating)

	// The request context carries the overlay, so stop receives it
	// rather than the stored original.
	restored := m.StopImpersonating(sess, overlay)
	assert.False(t, restored.Impersonating)
	assert.Equal(t, uuid.Nil, restored.TenantID)
	assert.False(t, m.IsImpersonating(sess))
}

func TestStopAfterRetargetRestoresHomeNotFirstTarget(t *testing.T) {
	m := impersonate.NewManager(nil)
	sess := newSession(t)
	prof := superAdmin()
	t1, t2 := uuid.New(), uuid.New()

	overlay1, err := m.AssumeTenant(sess, prof, t1)
	require.NoError(t, err)
	overlay2, err := m.AssumeTenant(sess, overlay1, t2)
	require.NoError(t, err)
	assert.Equal(t, t2, overlay2.TenantID)

	restored := m.StopImpersonating(sess, overlay2)
	assert.Equal(t, uuid.Nil, restored.TenantID, "home scope, not the first target")
	assert.False(t, restored.Impersonating)
}
