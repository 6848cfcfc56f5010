package patients_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/patients"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type memRepo struct {
	byTenant map[uuid.UUID][]patients.Patient
}

func newMemRepo() *memRepo {
	return &memRepo{byTenant: make(map[uuid.UUID][]patients.Patient)}
}

func (m *memRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]patients.Patient, int, error) {
	rows := m.byTenant[tenantID]
	total := len(rows)
	if offset >= len(rows) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], total, nil
}

func (m *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*patients.Patient, error) {
	for _, p := range m.byTenant[tenantID] {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, p *patients.Patient) error {
	m.byTenant[p.TenantID] = append(m.byTenant[p.TenantID], *p)
	return nil
}

func (m *memRepo) Update(ctx context.Context, p *patients.Patient) error {
	rows := m.byTenant[p.TenantID]
	for i := range rows {
		if rows[i].ID == p.ID {
			rows[i] = *p
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	rows := m.byTenant[tenantID]
	for i := range rows {
		if rows[i].ID == id {
			m.byTenant[tenantID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func profFor(role authz.Role, tenant uuid.UUID) *profile.TenantProfile {
	return &profile.TenantProfile{PrincipalID: uuid.New(), Role: role, TenantID: tenant, Active: true}
}

func TestCreateRequiresPermission(t *testing.T) {
	svc := patients.NewService(newMemRepo(), nil, nil)
	tenant := uuid.New()

	_, err := svc.Create(context.Background(), profFor(authz.RolePatient, tenant), patients.CreateInput{FullName: "A"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), nil, patients.CreateInput{FullName: "A"})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied, "absent profile fails closed")
}

func TestListIsTenantScoped(t *testing.T) {
	repo := newMemRepo()
	svc := patients.NewService(repo, nil, nil)
	tenantA, tenantB := uuid.New(), uuid.New()

	_, err := svc.Create(context.Background(), profFor(authz.RoleTherapist, tenantA), patients.CreateInput{FullName: "Alice"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), profFor(authz.RoleTherapist, tenantB), patients.CreateInput{FullName: "Bob"})
	require.NoError(t, err)

	rows, pagination, err := svc.List(context.Background(), profFor(authz.RoleReceptionist, tenantA), 1, 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].FullName)
	assert.Equal(t, tenantA, rows[0].TenantID)
	assert.Equal(t, 1, pagination.Total)
}

func TestImpersonatedSuperAdminWritesIntoAssumedTenant(t *testing.T) {
	repo := newMemRepo()
	svc := patients.NewService(repo, nil, nil)
	tenant := uuid.New()

	admin := &profile.TenantProfile{PrincipalID: uuid.New(), Role: authz.RoleSuperAdmin, Active: true}
	overlay := admin.WithTenant(tenant)

	created, err := svc.Create(context.Background(), overlay, patients.CreateInput{FullName: "Via Overlay"})
	require.NoError(t, err)
	assert.Equal(t, tenant, created.TenantID, "resource scoping uses the assumed tenant, not the super admin's own")
	require.Len(t, repo.byTenant[tenant], 1)
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	svc := patients.NewService(newMemRepo(), nil, nil)
	_, err := svc.Update(context.Background(), profFor(authz.RoleTherapist, uuid.New()), uuid.New(), patients.UpdateInput{FullName: "X"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRequiresElevatedPermission(t *testing.T) {
	repo := newMemRepo()
	svc := patients.NewService(repo, nil, nil)
	tenant := uuid.New()
	created, err := svc.Create(context.Background(), profFor(authz.RoleTherapist, tenant), patients.CreateInput{FullName: "A"})
	require.NoError(t, err)

	// Therapists may create and update but not delete records.
	err = svc.Delete(context.Background(), profFor(authz.RoleTherapist, tenant), created.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	err = svc.Delete(context.Background(), profFor(authz.RoleClinicManager, tenant), created.ID)
	assert.NoError(t, err)
}
