// Package users manages the staff roster of one clinic: listing the
// profiles bound to the tenant and adjusting their role or active flag.
package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// ErrInvalidRole indicates a role outside the closed catalog.
var ErrInvalidRole = errors.New("users: unknown role")

// ErrSelfDemotion indicates a manager trying to change their own access.
var ErrSelfDemotion = errors.New("users: cannot change own role or status")

// ProfileStore is the subset of profile persistence the roster needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, principalID uuid.UUID) (*profile.TenantProfile, error)
	UpdateProfile(ctx context.Context, principalID uuid.UUID, patch profile.Patch) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]profile.TenantProfile, error)
}

// UpdateInput carries the adjustable roster fields.
type UpdateInput struct {
	Role   authz.Role
	Active bool
}

// Service handles staff roster logic within one clinic.
type Service struct {
	store    ProfileStore
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(store ProfileStore, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: store, recorder: recorder, logger: logger}
}

// List returns the clinic's staff profiles.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile) ([]profile.TenantProfile, error) {
	if !authz.Can(prof, authz.PermUsersView) {
		return nil, shared.ErrPermissionDenied
	}
	return s.store.ListByTenant(ctx, prof.TenantID)
}

// Update changes a staff member's role or active flag. Assigning the
// platform role is refused here; that path runs through platform
// provisioning, not the clinic roster.
func (s *Service) Update(ctx context.Context, prof *profile.TenantProfile, principalID uuid.UUID, input UpdateInput) (*profile.TenantProfile, error) {
	if !authz.Can(prof, authz.PermUsersEdit) {
		return nil, shared.ErrPermissionDenied
	}
	if principalID == prof.PrincipalID {
		return nil, ErrSelfDemotion
	}
	if !input.Role.Valid() || input.Role == authz.RoleSuperAdmin {
		return nil, ErrInvalidRole
	}

	target, err := s.store.GetProfile(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if target.TenantID != prof.TenantID {
		// Roster edits never cross clinics.
		return nil, shared.ErrNotFound
	}

	patch := profile.Patch{Role: &input.Role, Active: &input.Active}
	if err := s.store.UpdateProfile(ctx, principalID, patch); err != nil {
		return nil, err
	}
	target.Role = input.Role
	target.Active = input.Active
	s.record(ctx, prof, "user.update", principalID.String(), map[string]any{
		"role":   string(input.Role),
		"active": input.Active,
	})
	return target, nil
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "user", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
