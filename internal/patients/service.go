package patients

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

// Service handles patient business logic. Every operation takes the
// acting profile explicitly and checks the capability before touching the
// repository; the tenant scope is always the profile's effective tenant.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// List returns one page of the clinic's patients.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile, page, perPage int) ([]Patient, shared.Pagination, error) {
	if !authz.Can(prof, authz.PermPatientsView) {
		return nil, shared.Pagination{}, shared.ErrPermissionDenied
	}
	pagination := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.ListByTenant(ctx, prof.TenantID, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Get fetches one patient in the clinic's scope.
func (s *Service) Get(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Patient, error) {
	if !authz.Can(prof, authz.PermPatientsView) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.GetByID(ctx, prof.TenantID, id)
}

// Create registers a new patient for the clinic.
func (s *Service) Create(ctx context.Context, prof *profile.TenantProfile, input CreateInput) (*Patient, error) {
	if !authz.Can(prof, authz.PermPatientsCreate) {
		return nil, shared.ErrPermissionDenied
	}
	p := &Patient{
		ID:        uuid.New(),
		TenantID:  prof.TenantID,
		FullName:  strings.TrimSpace(input.FullName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		BirthDate: input.BirthDate,
		Notes:     input.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "patient.create", p.ID.String(), nil)
	return p, nil
}

// Update modifies a patient within the clinic's scope.
func (s *Service) Update(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID, input UpdateInput) (*Patient, error) {
	if !authz.Can(prof, authz.PermPatientsUpdate) {
		return nil, shared.ErrPermissionDenied
	}
	p, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(input.FullName)
	p.Email = strings.TrimSpace(input.Email)
	p.Phone = strings.TrimSpace(input.Phone)
	p.Notes = input.Notes
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "patient.update", p.ID.String(), nil)
	return p, nil
}

// Delete removes a patient within the clinic's scope.
func (s *Service) Delete(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) error {
	if !authz.Can(prof, authz.PermPatientsDelete) {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.Delete(ctx, prof.TenantID, id); err != nil {
		return err
	}
	s.record(ctx, prof, "patient.delete", id.String(), nil)
	return nil
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "patient", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
