package exercises_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/exercises"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type memRepo struct {
	byTenant map[uuid.UUID][]exercises.Prescription
}

func newMemRepo() *memRepo {
	return &memRepo{byTenant: make(map[uuid.UUID][]exercises.Prescription)}
}

func (m *memRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]exercises.Prescription, error) {
	return m.byTenant[tenantID], nil
}

func (m *memRepo) ListByPatientPrincipal(ctx context.Context, tenantID, principalID uuid.UUID) ([]exercises.Prescription, error) {
	var out []exercises.Prescription
	for _, p := range m.byTenant[tenantID] {
		if p.PatientPrincipalID == principalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*exercises.Prescription, error) {
	for _, p := range m.byTenant[tenantID] {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, p *exercises.Prescription) error {
	m.byTenant[p.TenantID] = append(m.byTenant[p.TenantID], *p)
	return nil
}

func (m *memRepo) Update(ctx context.Context, p *exercises.Prescription) error {
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

func TestPrescribeRequiresCapability(t *testing.T) {
	svc := exercises.NewService(newMemRepo(), nil, nil)
	tenant := uuid.New()

	input := exercises.PrescribeInput{PatientID: uuid.New(), Title: "Knee program"}
	_, err := svc.Prescribe(context.Background(), profFor(authz.RoleReceptionist, tenant), input)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	p, err := svc.Prescribe(context.Background(), profFor(authz.RoleTherapist, tenant), input)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, tenant, p.TenantID)
}

func TestPatientViewIsScopedToOwnLogin(t *testing.T) {
	repo := newMemRepo()
	svc := exercises.NewService(repo, nil, nil)
	tenant := uuid.New()
	therapist := profFor(authz.RoleTherapist, tenant)
	patient := profFor(authz.RolePatient, tenant)

	mine, err := svc.Prescribe(context.Background(), therapist, exercises.PrescribeInput{
		PatientID:          uuid.New(),
		PatientPrincipalID: patient.PrincipalID,
		Title:              "Shoulder mobility",
	})
	require.NoError(t, err)
	_, err = svc.Prescribe(context.Background(), therapist, exercises.PrescribeInput{
		PatientID: uuid.New(),
		Title:     "Back extension",
	})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), therapist)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)
}

func TestPatientCannotReadForeignPrescription(t *testing.T) {
	repo := newMemRepo()
	svc := exercises.NewService(repo, nil, nil)
	tenant := uuid.New()
	therapist := profFor(authz.RoleTherapist, tenant)

	foreign, err := svc.Prescribe(context.Background(), therapist, exercises.PrescribeInput{
		PatientID: uuid.New(),
		Title:     "Back extension",
	})
	require.NoError(t, err)

	patient := profFor(authz.RolePatient, tenant)
	_, err = svc.Get(context.Background(), patient, foreign.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRequiresCapability(t *testing.T) {
	repo := newMemRepo()
	svc := exercises.NewService(repo, nil, nil)
	tenant := uuid.New()
	therapist := profFor(authz.RoleTherapist, tenant)

	p, err := svc.Prescribe(context.Background(), therapist, exercises.PrescribeInput{
		PatientID: uuid.New(),
		Title:     "Ankle strength",
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), profFor(authz.RolePatient, tenant), p.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	require.NoError(t, svc.Delete(context.Background(), therapist, p.ID))
	_, err = svc.Get(context.Background(), therapist, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
