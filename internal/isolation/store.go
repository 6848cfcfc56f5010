package isolation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/appointments"
	"github.com/therapia-health/therapia/internal/exercises"
	"github.com/therapia-health/therapia/internal/patients"
	"github.com/therapia-health/therapia/internal/payments"
)

// kinds is the canonical audit order.
var kinds = []string{"appointments", "exercises", "patients", "payments"}

// Kinds returns the auditable resource kinds in stable order.
func Kinds() []string {
	out := make([]string, len(kinds))
	copy(out, kinds)
	return out
}

// PatientSource is the slice of the patients repository the auditor reads.
type PatientSource interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]patients.Patient, int, error)
}

// AppointmentSource is the slice of the appointments repository the auditor reads.
type AppointmentSource interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)
}

// PaymentSource is the slice of the payments repository the auditor reads.
type PaymentSource interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]payments.Payment, int, error)
}

// ExerciseSource is the slice of the exercises repository the auditor reads.
type ExerciseSource interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]exercises.Prescription, error)
}

// auditPageSize bounds one repository read during a sweep.
const auditPageSize = 500

// RepoStore reads resource rows through the application repositories'
// own list queries. The auditor compares each returned row's tenant
// against the requested scope, so a scoping defect in repository SQL
// shows up as a violation instead of being masked by a second,
// independent filter.
type RepoStore struct {
	patients     PatientSource
	appointments AppointmentSource
	payments     PaymentSource
	exercises    ExerciseSource
}

// NewRepoStore constructs a RepoStore over the four audited repositories.
func NewRepoStore(p PatientSource, a AppointmentSource, pay PaymentSource, ex ExerciseSource) *RepoStore {
	return &RepoStore{patients: p, appointments: a, payments: pay, exercises: ex}
}

// TenantRows implements ResourceStore.
func (s *RepoStore) TenantRows(ctx context.Context, kind string, tenantID uuid.UUID) ([]Row, error) {
	switch kind {
	case "patients":
		return s.patientRows(ctx, tenantID)
	case "appointments":
		return s.appointmentRows(ctx, tenantID)
	case "payments":
		return s.paymentRows(ctx, tenantID)
	case "exercises":
		return s.exerciseRows(ctx, tenantID)
	default:
		return nil, fmt.Errorf("isolation: unknown resource kind %q", kind)
	}
}

func (s *RepoStore) patientRows(ctx context.Context, tenantID uuid.UUID) ([]Row, error) {
	var out []Row
	for offset := 0; ; offset += auditPageSize {
		page, _, err := s.patients.ListByTenant(ctx, tenantID, auditPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			out = append(out, Row{ID: p.ID, TenantID: p.TenantID})
		}
		if len(page) < auditPageSize {
			return out, nil
		}
	}
}

func (s *RepoStore) appointmentRows(ctx context.Context, tenantID uuid.UUID) ([]Row, error) {
	// The repository lists by window; the sweep wants everything, so the
	// window spans from the zero time to a year out.
	list, err := s.appointments.ListByTenant(ctx, tenantID, time.Time{}, time.Now().AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(list))
	for _, a := range list {
		out = append(out, Row{ID: a.ID, TenantID: a.TenantID})
	}
	return out, nil
}

func (s *RepoStore) paymentRows(ctx context.Context, tenantID uuid.UUID) ([]Row, error) {
	var out []Row
	for offset := 0; ; offset += auditPageSize {
		page, _, err := s.payments.ListByTenant(ctx, tenantID, auditPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			out = append(out, Row{ID: p.ID, TenantID: p.TenantID})
		}
		if len(page) < auditPageSize {
			return out, nil
		}
	}
}

func (s *RepoStore) exerciseRows(ctx context.Context, tenantID uuid.UUID) ([]Row, error) {
	list, err := s.exercises.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(list))
	for _, p := range list {
		out = append(out, Row{ID: p.ID, TenantID: p.TenantID})
	}
	return out, nil
}

var _ ResourceStore = (*RepoStore)(nil)
