package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// ErrInvalidAmount indicates a non-positive payment amount.
var ErrInvalidAmount = errors.New("payments: amount must be positive")

// ErrUnknownCurrency indicates a currency code outside ISO 4217.
var ErrUnknownCurrency = errors.New("payments: unknown currency code")

// IdempotencyGuard deduplicates payment submissions by client key.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "payments"

// Service handles payment business logic. Listing honours the view
// scope split: holders of the clinic-wide capability see everything,
// holders of the own-records capability see only their payments.
type Service struct {
	repo        RepositoryPort
	idempotency IdempotencyGuard
	recorder    *audit.Recorder
	logger      *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, idempotency IdempotencyGuard, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, idempotency: idempotency, recorder: recorder, logger: logger}
}

// List returns one page of payments visible to the acting profile.
func (s *Service) List(ctx context.Context, prof *profile.TenantProfile, page, perPage int) ([]Payment, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	offset := (pagination.Page - 1) * pagination.PerPage

	var (
		rows  []Payment
		total int
		err   error
	)
	switch {
	case authz.Can(prof, authz.PermPaymentsViewAll):
		rows, total, err = s.repo.ListByTenant(ctx, prof.TenantID, pagination.PerPage, offset)
	case authz.Can(prof, authz.PermPaymentsViewOwn):
		rows, total, err = s.repo.ListByPayer(ctx, prof.TenantID, prof.PrincipalID, pagination.PerPage, offset)
	default:
		return nil, shared.Pagination{}, shared.ErrPermissionDenied
	}
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Get fetches one payment the profile may see.
func (s *Service) Get(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Payment, error) {
	if !authz.Can(prof, authz.PermPaymentsViewAll) && !authz.Can(prof, authz.PermPaymentsViewOwn) {
		return nil, shared.ErrPermissionDenied
	}
	p, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(prof, authz.PermPaymentsViewAll) && p.PayerID != prof.PrincipalID {
		// Own-scope callers must not learn whether the row exists.
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// Create records a received payment. A client idempotency key, when
// supplied, makes retries safe.
func (s *Service) Create(ctx context.Context, prof *profile.TenantProfile, input CreateInput, idempotencyKey string) (*Payment, error) {
	if !authz.Can(prof, authz.PermPaymentsCreate) {
		return nil, shared.ErrPermissionDenied
	}
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	code := strings.ToUpper(strings.TrimSpace(input.Currency))
	if !ValidCurrency(code) {
		return nil, ErrUnknownCurrency
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
	}

	p := &Payment{
		ID:            uuid.New(),
		TenantID:      prof.TenantID,
		PatientID:     input.PatientID,
		PayerID:       input.PayerID,
		AppointmentID: input.AppointmentID,
		AmountCents:   input.AmountCents,
		Currency:      code,
		Status:        StatusPaid,
		Method:        input.Method,
		Reference:     input.Reference,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil && s.logger != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return nil, err
	}
	s.record(ctx, prof, "payment.create", p.ID.String(), map[string]any{
		"amount_cents": p.AmountCents,
		"currency":     p.Currency,
	})
	return p, nil
}

// Refund reverses a paid payment.
func (s *Service) Refund(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Payment, error) {
	if !authz.Can(prof, authz.PermPaymentsRefund) {
		return nil, shared.ErrPermissionDenied
	}
	p, err := s.repo.GetByID(ctx, prof.TenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPaid {
		return nil, shared.ErrNotFound
	}
	if err := s.repo.UpdateStatus(ctx, prof.TenantID, id, StatusRefunded); err != nil {
		return nil, err
	}
	p.Status = StatusRefunded
	s.record(ctx, prof, "payment.refund", p.ID.String(), map[string]any{
		"amount_cents": p.AmountCents,
		"currency":     p.Currency,
	})
	return p, nil
}

func (s *Service) record(ctx context.Context, prof *profile.TenantProfile, action, entityID string, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Mutation(prof, action, "payment", entityID, meta)); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
