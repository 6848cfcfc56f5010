package payments_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/payments"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

type memRepo struct {
	byTenant map[uuid.UUID][]payments.Payment
}

func newMemRepo() *memRepo {
	return &memRepo{byTenant: make(map[uuid.UUID][]payments.Payment)}
}

func (m *memRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]payments.Payment, int, error) {
	rows := m.byTenant[tenantID]
	return page(rows, limit, offset), len(rows), nil
}

func (m *memRepo) ListByPayer(ctx context.Context, tenantID, payerID uuid.UUID, limit, offset int) ([]payments.Payment, int, error) {
	var rows []payments.Payment
	for _, p := range m.byTenant[tenantID] {
		if p.PayerID == payerID {
			rows = append(rows, p)
		}
	}
	return page(rows, limit, offset), len(rows), nil
}

func (m *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*payments.Payment, error) {
	for _, p := range m.byTenant[tenantID] {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, p *payments.Payment) error {
	m.byTenant[p.TenantID] = append(m.byTenant[p.TenantID], *p)
	return nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status payments.Status) error {
	rows := m.byTenant[tenantID]
	for i := range rows {
		if rows[i].ID == id {
			rows[i].Status = status
			return nil
		}
	}
	return shared.ErrNotFound
}

func page(rows []payments.Payment, limit, offset int) []payments.Payment {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

type memGuard struct {
	seen    map[string]bool
	deleted []string
}

func newMemGuard() *memGuard {
	return &memGuard{seen: make(map[string]bool)}
}

func (m *memGuard) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.seen[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[module+":"+key] = true
	return nil
}

func (m *memGuard) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func profFor(role authz.Role, tenant uuid.UUID) *profile.TenantProfile {
	return &profile.TenantProfile{PrincipalID: uuid.New(), Role: role, TenantID: tenant, Active: true}
}

func validInput() payments.CreateInput {
	return payments.CreateInput{
		PatientID:   uuid.New(),
		PayerID:     uuid.New(),
		AmountCents: 12000,
		Currency:    "usd",
		Method:      "card",
	}
}

func TestCreateRequiresPermission(t *testing.T) {
	svc := payments.NewService(newMemRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), profFor(authz.RolePatient, uuid.New()), validInput(), "")
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), profFor(authz.RoleTherapist, uuid.New()), validInput(), "")
	assert.ErrorIs(t, err, shared.ErrPermissionDenied, "therapists only view their own payments")
}

func TestCreateNormalisesAndValidates(t *testing.T) {
	svc := payments.NewService(newMemRepo(), nil, nil, nil)
	prof := profFor(authz.RoleReceptionist, uuid.New())

	p, err := svc.Create(context.Background(), prof, validInput(), "")
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, payments.StatusPaid, p.Status)

	bad := validInput()
	bad.AmountCents = 0
	_, err = svc.Create(context.Background(), prof, bad, "")
	assert.ErrorIs(t, err, payments.ErrInvalidAmount)

	bad = validInput()
	bad.Currency = "XYZ1"
	_, err = svc.Create(context.Background(), prof, bad, "")
	assert.ErrorIs(t, err, payments.ErrUnknownCurrency)
}

func TestCreateIsIdempotentByKey(t *testing.T) {
	repo := newMemRepo()
	guard := newMemGuard()
	svc := payments.NewService(repo, guard, nil, nil)
	prof := profFor(authz.RoleReceptionist, uuid.New())

	_, err := svc.Create(context.Background(), prof, validInput(), "key-1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), prof, validInput(), "key-1")
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Len(t, repo.byTenant[prof.TenantID], 1, "retry must not double-charge")
}

func TestListScopeSplit(t *testing.T) {
	repo := newMemRepo()
	svc := payments.NewService(repo, nil, nil, nil)
	tenant := uuid.New()
	receptionist := profFor(authz.RoleReceptionist, tenant)

	patient := profFor(authz.RolePatient, tenant)
	own := validInput()
	own.PayerID = patient.PrincipalID
	_, err := svc.Create(context.Background(), receptionist, own, "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), receptionist, validInput(), "")
	require.NoError(t, err)

	all, _, err := svc.List(context.Background(), receptionist, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, _, err := svc.List(context.Background(), patient, 1, 20)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, patient.PrincipalID, mine[0].PayerID)
}

func TestGetHidesForeignRowsFromOwnScope(t *testing.T) {
	repo := newMemRepo()
	svc := payments.NewService(repo, nil, nil, nil)
	tenant := uuid.New()
	receptionist := profFor(authz.RoleReceptionist, tenant)

	other, err := svc.Create(context.Background(), receptionist, validInput(), "")
	require.NoError(t, err)

	patient := profFor(authz.RolePatient, tenant)
	_, err = svc.Get(context.Background(), patient, other.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRefundRequiresCapabilityAndPaidStatus(t *testing.T) {
	repo := newMemRepo()
	svc := payments.NewService(repo, nil, nil, nil)
	tenant := uuid.New()
	receptionist := profFor(authz.RoleReceptionist, tenant)

	p, err := svc.Create(context.Background(), receptionist, validInput(), "")
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), receptionist, p.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	manager := profFor(authz.RoleClinicManager, tenant)
	refunded, err := svc.Refund(context.Background(), manager, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusRefunded, refunded.Status)

	_, err = svc.Refund(context.Background(), manager, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "double refund is rejected")
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, payments.FormatAmount(12050, "USD"), "120.50")
	assert.Contains(t, payments.FormatAmount(500, "ZZZ"), "ZZZ")
}
