package clinics_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/clinics"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type memRepo struct {
	rows []clinics.Clinic
}

func (m *memRepo) List(ctx context.Context) ([]clinics.Clinic, error) {
	return m.rows, nil
}

func (m *memRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(m.rows))
	for _, c := range m.rows {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*clinics.Clinic, error) {
	for _, c := range m.rows {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, c *clinics.Clinic) error {
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memRepo) Update(ctx context.Context, c *clinics.Clinic) error {
	for i := range m.rows {
		if m.rows[i].ID == c.ID {
			m.rows[i] = *c
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memRepo) Overviews(ctx context.Context) ([]clinics.Overview, error) {
	out := make([]clinics.Overview, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, clinics.Overview{ClinicID: c.ID, ClinicName: c.Name})
	}
	return out, nil
}

func profFor(role authz.Role) *profile.TenantProfile {
	return &profile.TenantProfile{PrincipalID: uuid.New(), Role: role, TenantID: uuid.New(), Active: true}
}

func TestClinicLifecycleIsPlatformOnly(t *testing.T) {
	repo := &memRepo{}
	svc := clinics.NewService(repo, nil, nil)
	admin := profFor(authz.RoleSuperAdmin)
	manager := profFor(authz.RoleClinicManager)

	// Clinic managers run one clinic; the platform surface stays closed
	// to them even though they hold every other capability.
	_, err := svc.Create(context.Background(), manager, clinics.CreateInput{Name: "North"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	_, err = svc.List(context.Background(), manager)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	_, err = svc.Analytics(context.Background(), manager)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	c, err := svc.Create(context.Background(), admin, clinics.CreateInput{Name: " North ", Slug: "North"})
	require.NoError(t, err)
	assert.Equal(t, "North", c.Name)
	assert.Equal(t, "north", c.Slug)
	assert.True(t, c.Active)

	_, err = svc.Update(context.Background(), manager, c.ID, clinics.UpdateInput{Name: "North 2"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	err = svc.Delete(context.Background(), manager, c.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	updated, err := svc.Update(context.Background(), admin, c.ID, clinics.UpdateInput{Name: "North 2", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "North 2", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), admin, c.ID))
	_, err = svc.Get(context.Background(), admin, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAnalyticsRequiresPlatformCapability(t *testing.T) {
	repo := &memRepo{rows: []clinics.Clinic{{ID: uuid.New(), Name: "South"}}}
	svc := clinics.NewService(repo, nil, nil)

	rows, err := svc.Analytics(context.Background(), profFor(authz.RoleSuperAdmin))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	for _, role := range []authz.Role{authz.RoleClinicManager, authz.RoleTherapist, authz.RoleReceptionist, authz.RolePatient} {
		_, err := svc.Analytics(context.Background(), profFor(role))
		assert.ErrorIs(t, err, shared.ErrPermissionDenied, string(role))
	}
}
