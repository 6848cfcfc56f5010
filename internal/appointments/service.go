package appointments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// ErrInvalidWindow indicates an appointment whose end does not follow its start.
var ErrInvalidWindow = errors.New("appointments: ends_at must be after starts_at")

// ReminderEnqueuer schedules a reminder to be delivered ahead of an
// appointment. Implemented by the jobs client; a nil enqueuer disables
// reminders without failing bookings.
type ReminderEnqueuer interface {
	EnqueueAppointmentReminder(ctx context.Context, tenantID, appointmentID uuid.UUID, startsAt time.Time) error
}

// Service handles appointment business logic. Operations take the acting
// profile explicitly and are scoped to the profile's effective tenant.
type Service struct {
	repo      RepositoryPort
	reminders ReminderEnqueuer
	recorder  *audit.Recorder
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, reminders ReminderEnqueuer, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, reminders: reminders, recorder: recorder, logger: logger}
}

// List returns the clinic's appointments inside a time window.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile, from, to time.Time) ([]Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsView) {
		return nil, shared.ErrPermissionDenied
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}
	return s.repo.ListByTenant(ctx, prof.TenantID, from, to)
}

// Get fetches one appointment in the clinic's scope.
func (s *Service) Get(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsView) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.GetByID(ctx, prof.TenantID, id)
}

// Create books a new appointment and schedules its reminder.
func (s *Service) Create(ctx context.Context, prof *profile.TenantProfile, input CreateInput) (*Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsCreate) {
		return nil, shared.ErrPermissionDenied
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrInvalidWindow
	}
	a := &Appointment{
		ID:          uuid.New(),
		TenantID:    prof.TenantID,
		PatientID:   input.PatientID,
		TherapistID: input.TherapistID,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Status:      StatusScheduled,
		Notes:       input.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.scheduleReminder(ctx, a)
	s.record(ctx, prof, "appointment.create", a.ID.String(), nil)
	return a, nil
}

// Reschedule moves an existing scheduled appointment.
func (s *Service) Reschedule(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID, input RescheduleInput) (*Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsUpdate) {
		return nil, shared.ErrPermissionDenied
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrInvalidWindow
	}
	a, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, shared.ErrNotFound
	}
	a.StartsAt = input.StartsAt
	a.EndsAt = input.EndsAt
	if input.Notes != "" {
		a.Notes = input.Notes
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.scheduleReminder(ctx, a)
	s.record(ctx, prof, "appointment.reschedule", a.ID.String(), map[string]any{
		"starts_at": a.StartsAt,
	})
	return a, nil
}

// Complete marks an appointment as held.
func (s *Service) Complete(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsUpdate) {
		return nil, shared.ErrPermissionDenied
	}
	return s.transition(ctx, prof, id, StatusCompleted, "appointment.complete")
}

// Cancel cancels an appointment. Cancelling is a distinct capability so
// front-desk staff can release slots without broader edit rights.
func (s *Service) Cancel(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Appointment, error) {
	if !authz.Can(prof, authz.PermAppointmentsCancel) {
		return nil, shared.ErrPermissionDenied
	}
	return s.transition(ctx, prof, id, StatusCancelled, "appointment.cancel")
}

func (s *Service) transition(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID, status Status, action string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, shared.ErrNotFound
	}
	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, prof, action, a.ID.String(), nil)
	return a, nil
}

func (s *Service) scheduleReminder(ctx context.Context, a *Appointment) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.EnqueueAppointmentReminder(ctx, a.TenantID, a.ID, a.StartsAt); err != nil && s.logger != nil {
		s.logger.Warn("enqueue reminder",
			slog.String("appointment_id", a.ID.String()),
			slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "appointment", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
