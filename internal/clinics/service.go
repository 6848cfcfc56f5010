package clinics

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

// Service handles clinic lifecycle at the platform level. Every
// operation here sits behind a clinic-management capability, which the
// role catalog withholds from clinic managers.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, logger: logger}
}

// List returns every clinic on the platform.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile) ([]Clinic, error) {
	if !authz.Can(prof, authz.PermClinicsViewAll) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.List(ctx)
}

// Get fetches one clinic.
func (s *Service) Get(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Clinic, error) {
	if !authz.Can(prof, authz.PermClinicsViewAll) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.GetByID(ctx, id)
}

// Create provisions a new clinic tenant.
func (s *Service) Create(ctx context.Context, prof *profile.TenantProfile, input CreateInput) (*Clinic, error) {
	if !authz.Can(prof, authz.PermClinicsCreate) {
		return nil, shared.ErrPermissionDenied
	}
	c := &Clinic{
		ID:      uuid.New(),
		Name:    strings.TrimSpace(input.Name),
		Slug:    strings.ToLower(strings.TrimSpace(input.Slug)),
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
		Email:   strings.TrimSpace(input.Email),
		Active:  true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "clinic.create", c.ID.String(), map[string]any{"slug": c.Slug})
	return c, nil
}

// Update modifies a clinic.
func (s *Service) Update(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID, input UpdateInput) (*Clinic, error) {
	if !authz.Can(prof, authz.PermClinicsUpdateAll) {
		return nil, shared.ErrPermissionDenied
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(input.Name)
	c.Address = strings.TrimSpace(input.Address)
	c.Phone = strings.TrimSpace(input.Phone)
	c.Email = strings.TrimSpace(input.Email)
	c.Active = input.Active
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, prof, "clinic.update", c.ID.String(), nil)
	return c, nil
}

// Delete removes a clinic tenant.
func (s *Service) Delete(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) error {
	if !authz.Can(prof, authz.PermClinicsDelete) {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, prof, "clinic.delete", id.String(), nil)
	return nil
}

// Analytics returns the cross-clinic activity snapshot.
func (s *Service) Analytics(ctx context.Context, prof *profile.TenantProfile) ([]Overview, error) {
	if !authz.Can(prof, authz.PermPlatformAnalyticsView) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.Overviews(ctx)
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "clinic", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
