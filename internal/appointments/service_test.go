package appointments_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/appointments"
	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type memRepo struct {
	byTenant map[uuid.UUID][]appointments.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{byTenant: make(map[uuid.UUID][]appointments.Appointment)}
}

func (m *memRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, a := range m.byTenant[tenantID] {
		if !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*appointments.Appointment, error) {
	for _, a := range m.byTenant[tenantID] {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, a *appointments.Appointment) error {
	m.byTenant[a.TenantID] = append(m.byTenant[a.TenantID], *a)
	return nil
}

func (m *memRepo) Update(ctx context.Context, a *appointments.Appointment) error {
	rows := m.byTenant[a.TenantID]
	for i := range rows {
		if rows[i].ID == a.ID {
			rows[i] = *a
			return nil
		}
	}
	return shared.ErrNotFound
}

type memEnqueuer struct {
	calls []uuid.UUID
	err   error
}

func (m *memEnqueuer) EnqueueAppointmentReminder(ctx context.Context, tenantID, appointmentID uuid.UUID, startsAt time.Time) error {
	m.calls = append(m.calls, appointmentID)
	return m.err
}

func profFor(role authz.Role, tenant uuid.UUID) *profile.TenantProfile {
	return &profile.TenantProfile{PrincipalID: uuid.New(), Role: role, TenantID: tenant, Active: true}
}

func validInput() appointments.CreateInput {
	start := time.Now().UTC().Add(48 * time.Hour)
	return appointments.CreateInput{
		PatientID:   uuid.New(),
		TherapistID: uuid.New(),
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
	}
}

func TestCreateRequiresPermission(t *testing.T) {
	svc := appointments.NewService(newMemRepo(), nil, nil, nil)
	tenant := uuid.New()

	_, err := svc.Create(context.Background(), profFor(authz.RolePatient, tenant), validInput())
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), nil, validInput())
	assert.ErrorIs(t, err, shared.ErrPermissionDenied, "absent profile fails closed")
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc := appointments.NewService(newMemRepo(), nil, nil, nil)
	tenant := uuid.New()

	input := validInput()
	input.EndsAt = input.StartsAt.Add(-time.Minute)
	_, err := svc.Create(context.Background(), profFor(authz.RoleReceptionist, tenant), input)
	assert.ErrorIs(t, err, appointments.ErrInvalidWindow)
}

func TestCreateSchedulesReminder(t *testing.T) {
	repo := newMemRepo()
	enq := &memEnqueuer{}
	svc := appointments.NewService(repo, enq, nil, nil)
	tenant := uuid.New()

	a, err := svc.Create(context.Background(), profFor(authz.RoleReceptionist, tenant), validInput())
	require.NoError(t, err)
	require.Len(t, enq.calls, 1)
	assert.Equal(t, a.ID, enq.calls[0])
	assert.Equal(t, appointments.StatusScheduled, a.Status)
	assert.Equal(t, tenant, a.TenantID)
}

func TestCreateSucceedsWhenEnqueueFails(t *testing.T) {
	enq := &memEnqueuer{err: context.DeadlineExceeded}
	svc := appointments.NewService(newMemRepo(), enq, nil, nil)

	_, err := svc.Create(context.Background(), profFor(authz.RoleTherapist, uuid.New()), validInput())
	assert.NoError(t, err, "a reminder queue outage must not block bookings")
}

func TestListIsTenantScoped(t *testing.T) {
	repo := newMemRepo()
	svc := appointments.NewService(repo, nil, nil, nil)
	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := svc.Create(context.Background(), profFor(authz.RoleReceptionist, tenantA), validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), profFor(authz.RoleReceptionist, tenantB), validInput())
	require.NoError(t, err)

	from := time.Now().UTC()
	rows, err := svc.List(context.Background(), profFor(authz.RoleTherapist, tenantA), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, tenantA, rows[0].TenantID)
}

func TestCancelNeedsCancelCapability(t *testing.T) {
	repo := newMemRepo()
	svc := appointments.NewService(repo, nil, nil, nil)
	tenant := uuid.New()

	a, err := svc.Create(context.Background(), profFor(authz.RoleTherapist, tenant), validInput())
	require.NoError(t, err)

	// Therapists hold update but not cancel.
	_, err = svc.Cancel(context.Background(), profFor(authz.RoleTherapist, tenant), a.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	cancelled, err := svc.Cancel(context.Background(), profFor(authz.RoleReceptionist, tenant), a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, cancelled.Status)
}

func TestTransitionsOnlyLeaveScheduled(t *testing.T) {
	repo := newMemRepo()
	svc := appointments.NewService(repo, nil, nil, nil)
	tenant := uuid.New()
	prof := profFor(authz.RoleClinicManager, tenant)

	a, err := svc.Create(context.Background(), prof, validInput())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), prof, a.ID)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), prof, a.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "cancelled appointments cannot complete")

	_, err = svc.Reschedule(context.Background(), prof, a.ID, appointments.RescheduleInput{
		StartsAt: time.Now().UTC().Add(72 * time.Hour),
		EndsAt:   time.Now().UTC().Add(73 * time.Hour),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound, "cancelled appointments cannot move")
}

func TestImpersonatedOverlayBooksIntoAssumedTenant(t *testing.T) {
	repo := newMemRepo()
	svc := appointments.NewService(repo, nil, nil, nil)
	assumed := uuid.New()

	admin := &profile.TenantProfile{PrincipalID: uuid.New(), Role: authz.RoleSuperAdmin, Active: true}
	overlay := admin.WithTenant(assumed)

	a, err := svc.Create(context.Background(), overlay, validInput())
	require.NoError(t, err)
	assert.Equal(t, assumed, a.TenantID)
	assert.Equal(t, uuid.UUID{}, admin.TenantID, "original profile stays untouched")
}
