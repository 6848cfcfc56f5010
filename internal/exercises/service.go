package exercises

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// Service handles exercise prescription logic. Viewers who can also
// prescribe see the whole clinic; view-only profiles see only programs
// assigned to their own login.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// List returns the prescriptions visible to the acting profile.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile) ([]Prescription, error) {
	if !authz.Can(prof, authz.PermExercisesView) {
		return nil, shared.ErrPermissionDenied
	}
	if authz.Can(prof, authz.PermExercisesPrescribe) {
		return s.repo.ListByTenant(ctx, prof.TenantID)
	}
	return s.repo.ListByPatientPrincipal(ctx, prof.TenantID, prof.PrincipalID)
}

// Get fetches one prescription the profile may see.
func (s *Service) Get(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Prescription, error) {
	if !authz.Can(prof, authz.PermExercisesView) {
		return nil, shared.ErrPermissionDenied
	}
	p, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(prof, authz.PermExercisesPrescribe) && p.PatientPrincipalID != prof.PrincipalID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// Prescribe assigns a new exercise program.
func (s *Service) Prescribe(ctx context.Context, prof *profile.TenantProfile, input PrescribeInput) (*Prescription, error) {
	if !authz.Can(prof, authz.PermExercisesPrescribe) {
		return nil, shared.ErrPermissionDenied
	}
	p := &Prescription{
		ID:                 uuid.New(),
		TenantID:           prof.TenantID,
		PatientID:          input.PatientID,
		PatientPrincipalID: input.PatientPrincipalID,
		TherapistID:        prof.PrincipalID,
		Title:              strings.TrimSpace(input.Title),
		Instructions:       input.Instructions,
		Frequency:          strings.TrimSpace(input.Frequency),
		Active:             true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "exercise.prescribe", p.ID.String(), nil)
	return p, nil
}

// Update modifies a prescription within the clinic's scope.
func (s *Service) Update(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID, input UpdateInput) (*Prescription, error) {
	if !authz.Can(prof, authz.PermExercisesUpdate) {
		return nil, shared.ErrPermissionDenied
	}
	p, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(input.Title)
	p.Instructions = input.Instructions
	p.Frequency = strings.TrimSpace(input.Frequency)
	p.Active = input.Active
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "exercise.update", p.ID.String(), nil)
	return p, nil
}

// Delete removes a prescription within the clinic's scope.
func (s *Service) Delete(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) error {
	if !authz.Can(prof, authz.PermExercisesDelete) {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.Delete(ctx, prof.TenantID, id); err != nil {
		return err
	}
	s.record(ctx, prof, "exercise.delete", id.String(), nil)
	return nil
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "exercise_prescription", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
