package profile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type stubSessions struct {
	principal uuid.UUID
	err       error
	calls     int
}

func (s *stubSessions) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	s.calls++
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return s.principal, nil
}

type stubStore struct {
	profiles map[uuid.UUID]*profile.TenantProfile
	err      error
	gets     int
}

func (s *stubStore) GetProfile(ctx context.Context, principalID uuid.UUID) (*profile.TenantProfile, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	prof, ok := s.profiles[principalID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return prof.Clone(), nil
}

func (s *stubStore) UpdateProfile(ctx context.Context, principalID uuid.UUID, patch profile.Patch) error {
	return nil
}

func TestResolveReturnsStoredProfile(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{profiles: map[uuid.UUID]*profile.TenantProfile{
		principal: {PrincipalID: principal, Role: authz.RoleTherapist, TenantID: tenant, Active: true},
	}}
	r := profile.NewResolver(&stubSessions{principal: principal}, store, nil)

	prof, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleTherapist, prof.Role)
	assert.Equal(t, tenant, prof.TenantID)
}

func TestResolveEmptyTokenIsUnauthenticated(t *testing.T) {
	r := profile.NewResolver(&stubSessions{}, &stubStore{}, nil)
	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveInvalidTokenIsUnauthenticated(t *testing.T) {
	r := profile.NewResolver(&stubSessions{err: shared.ErrUnauthenticated}, &stubStore{}, nil)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveMissingProfileFailsClosed(t *testing.T) {
	// Authenticated principal without a profile row never receives a
	// default role; it is indistinguishable from unauthenticated.
	r := profile.NewResolver(&stubSessions{principal: uuid.New()}, &stubStore{}, nil)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolvePropagatesTransientStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	r := profile.NewResolver(&stubSessions{principal: uuid.New()}, &stubStore{err: boom}, nil)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveUsesContextCache(t *testing.T) {
	principal := uuid.New()
	store := &stubStore{profiles: map[uuid.UUID]*profile.TenantProfile{
		principal: {PrincipalID: principal, Role: authz.RoleReceptionist, Active: true},
	}}
	sessions := &stubSessions{principal: principal}
	r := profile.NewResolver(sessions, store, nil)

	ctx := context.Background()
	prof, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	ctx = profile.NewContext(ctx, prof)

	again, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	assert.Same(t, prof, again)
	assert.Equal(t, 1, store.gets, "cached resolve must not hit the store")
}

func TestRefreshBypassesContextCache(t *testing.T) {
	principal := uuid.New()
	store := &stubStore{profiles: map[uuid.UUID]*profile.TenantProfile{
		principal: {PrincipalID: principal, Role: authz.RoleTherapist, Active: true},
	}}
	r := profile.NewResolver(&stubSessions{principal: principal}, store, nil)

	ctx := context.Background()
	prof, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	ctx = profile.NewContext(ctx, prof)

	// Simulate an administrative role change between requests.
	store.profiles[principal] = &profile.TenantProfile{
		PrincipalID: principal, Role: authz.RoleClinicManager, Active: true,
	}
	fresh, err := r.Refresh(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleClinicManager, fresh.Role)
	assert.Equal(t, 2, store.gets)
}

func TestCloneIsDeep(t *testing.T) {
	orig := &profile.TenantProfile{
		PrincipalID: uuid.New(),
		Role:        authz.RolePatient,
		Active:      true,
		Settings:    map[string]string{"locale": "en"},
	}
	cp := orig.Clone()
	cp.Settings["locale"] = "id"
	assert.Equal(t, "en", orig.Settings["locale"])
}

func TestWithTenantLeavesOriginalUntouched(t *testing.T) {
	tenant := uuid.New()
	orig := &profile.TenantProfile{PrincipalID: uuid.New(), Role: authz.RoleSuperAdmin, Active: true}
	overlay := orig.WithTenant(tenant)
	assert.Equal(t, tenant, overlay.TenantID)
	assert.Equal(t, uuid.Nil, orig.TenantID)
}
