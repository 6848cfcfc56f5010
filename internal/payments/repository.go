package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/shared"
)

// RepositoryPort defines tenant-scoped data access for payments.
type RepositoryPort interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Payment, int, error)
	ListByPayer(ctx context.Context, tenantID, payerID uuid.UUID, limit, offset int) ([]Payment, int, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	Create(ctx context.Context, p *Payment) error
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, tenant_id, patient_id, payer_id, COALESCE(appointment_id, '00000000-0000-0000-0000-000000000000'), amount_cents, currency, status, method, reference, created_at, updated_at`

// ListByTenant returns one page of a clinic's payments, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Payment, int, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, `
		SELECT COUNT(*) FROM payments WHERE tenant_id = $1`,
		[]any{tenantID, limit, offset}, []any{tenantID})
}

// ListByPayer narrows the listing to payments owned by one principal.
func (r *Repository) ListByPayer(ctx context.Context, tenantID, payerID uuid.UUID, limit, offset int) ([]Payment, int, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND payer_id = $2
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, `
		SELECT COUNT(*) FROM payments WHERE tenant_id = $1 AND payer_id = $2`,
		[]any{tenantID, payerID, limit, offset}, []any{tenantID, payerID})
}

func (r *Repository) list(ctx context.Context, query, countQuery string, args, countArgs []any) ([]Payment, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches one payment in tenant scope.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment row.
func (r *Repository) Create(ctx context.Context, p *Payment) error {
	var appointmentID any
	if p.AppointmentID != uuid.Nil {
		appointmentID = p.AppointmentID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, patient_id, payer_id, appointment_id, amount_cents, currency, status, method, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		p.ID, p.TenantID, p.PatientID, p.PayerID, appointmentID, p.AmountCents, p.Currency, p.Status, p.Method, p.Reference)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateStatus transitions a payment in tenant scope.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`, tenantID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.TenantID, &p.PatientID, &p.PayerID, &p.AppointmentID,
		&p.AmountCents, &p.Currency, &p.Status, &p.Method, &p.Reference, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var _ RepositoryPort = (*Repository)(nil)
