package exercises

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/shared"
)

// RepositoryPort defines tenant-scoped data access for prescriptions.
type RepositoryPort interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Prescription, error)
	ListByPatientPrincipal(ctx context.Context, tenantID, principalID uuid.UUID) ([]Prescription, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Prescription, error)
	Create(ctx context.Context, p *Prescription) error
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const prescriptionColumns = `id, tenant_id, patient_id, patient_principal_id, therapist_id, title, instructions, frequency, active, created_at, updated_at`

// ListByTenant returns a clinic's prescriptions, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Prescription, error) {
	return r.list(ctx, `
		SELECT `+prescriptionColumns+`
		FROM exercise_prescriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id`, tenantID)
}

// ListByPatientPrincipal narrows the listing to one patient login.
func (r *Repository) ListByPatientPrincipal(ctx context.Context, tenantID, principalID uuid.UUID) ([]Prescription, error) {
	return r.list(ctx, `
		SELECT `+prescriptionColumns+`
		FROM exercise_prescriptions
		WHERE tenant_id = $1 AND patient_principal_id = $2
		ORDER BY created_at DESC, id`, tenantID, principalID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one prescription in tenant scope.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM exercise_prescriptions
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	p, err := scanPrescription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a prescription row.
func (r *Repository) Create(ctx context.Context, p *Prescription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO exercise_prescriptions (id, tenant_id, patient_id, patient_principal_id, therapist_id, title, instructions, frequency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		p.ID, p.TenantID, p.PatientID, p.PatientPrincipalID, p.TherapistID, p.Title, p.Instructions, p.Frequency, p.Active)
	return err
}

// Update rewrites the mutable fields in tenant scope.
func (r *Repository) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE exercise_prescriptions SET title = $3, instructions = $4, frequency = $5, active = $6, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.Title, p.Instructions, p.Frequency, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a prescription in tenant scope.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM exercise_prescriptions WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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

func scanPrescription(row rowScanner) (Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.TenantID, &p.PatientID, &p.PatientPrincipalID, &p.TherapistID,
		&p.Title, &p.Instructions, &p.Frequency, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var _ RepositoryPort = (*Repository)(nil)
