package clinics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/platform/db"
	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/shared"
)

// RepositoryPort defines platform-level data access for clinics.
type RepositoryPort interface {
	List(ctx context.Context) ([]Clinic, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	Create(ctx context.Context, c *Clinic) error
	Update(ctx context.Context, c *Clinic) error
	Delete(ctx context.Context, id uuid.UUID) error
	Overviews(ctx context.Context) ([]Overview, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clinicColumns = `id, name, slug, address, phone, email, active, created_at, updated_at`

// List returns every clinic ordered by name.
func (r *Repository) List(ctx context.Context) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clinicColumns+`
		FROM clinics
		ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIDs returns every clinic id, used by the isolation sweep.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM clinics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByID fetches one clinic.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clinicColumns+`
		FROM clinics
		WHERE id = $1`, id)
	c, err := scanClinic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a clinic row. Slugs are unique platform-wide.
func (r *Repository) Create(ctx context.Context, c *Clinic) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinics (id, name, slug, address, phone, email, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		c.ID, c.Name, c.Slug, c.Address, c.Phone, c.Email, c.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// Update rewrites the mutable fields.
func (r *Repository) Update(ctx context.Context, c *Clinic) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics SET name = $2, address = $3, phone = $4, email = $5, active = $6, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Address, c.Phone, c.Email, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a clinic and deactivates every profile bound to it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM clinics WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx, `UPDATE tenant_profiles SET active = false, updated_at = NOW() WHERE tenant_id = $1`, id)
		return err
	})
}

// Overviews aggregates per-clinic activity for platform analytics.
func (r *Repository) Overviews(ctx context.Context) ([]Overview, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name,
		       (SELECT COUNT(*) FROM patients p WHERE p.tenant_id = c.id),
		       (SELECT COUNT(*) FROM appointments a WHERE a.tenant_id = c.id),
		       COALESCE((SELECT SUM(amount_cents) FROM payments pay WHERE pay.tenant_id = c.id AND pay.status = 'paid'), 0)
		FROM clinics c
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Overview
	for rows.Next() {
		var o Overview
		if err := rows.Scan(&o.ClinicID, &o.ClinicName, &o.Patients, &o.Appointments, &o.PaymentsSum); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanClinic(row interface{ Scan(dest ...any) error }) (Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Address, &c.Phone, &c.Email, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

var _ RepositoryPort = (*Repository)(nil)
