package profile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tenant profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfile fetches the tenant profile for a principal.
func (r *Repository) GetProfile(ctx context.Context, principalID uuid.UUID) (*TenantProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT principal_id, role, COALESCE(tenant_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       active, display_name, COALESCE(settings, '{}'::jsonb)
		FROM tenant_profiles
		WHERE principal_id = $1`, principalID)

	var (
		prof        TenantProfile
		role        string
		settingsRaw []byte
	)
	if err := row.Scan(&prof.PrincipalID, &role, &prof.TenantID, &prof.Active, &prof.DisplayName, &settingsRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, err
	}
	prof.Role = parseRole(role)
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &prof.Settings); err != nil {
			return nil, err
		}
	}
	return &prof, nil
}

// UpdateProfile applies a partial update to a single profile row. A role
// or tenant change takes effect on the next resolve; callers that hold a
// cached profile must refresh it.
func (r *Repository) UpdateProfile(ctx context.Context, principalID uuid.UUID, patch Patch) error {
	var settingsRaw []byte
	if patch.Settings != nil {
		data, err := json.Marshal(patch.Settings)
		if err != nil {
			return err
		}
		settingsRaw = data
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenant_profiles SET
			role = COALESCE($2, role),
			tenant_id = COALESCE($3, tenant_id),
			active = COALESCE($4, active),
			display_name = COALESCE($5, display_name),
			settings = COALESCE($6, settings),
			updated_at = NOW()
		WHERE principal_id = $1`,
		principalID, roleParam(patch.Role), patch.TenantID, patch.Active, patch.DisplayName, settingsRaw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// ListByTenant returns every profile assigned to a tenant, ordered by
// display name. Used by staff management.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]TenantProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT principal_id, role, COALESCE(tenant_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       active, display_name, COALESCE(settings, '{}'::jsonb)
		FROM tenant_profiles
		WHERE tenant_id = $1
		ORDER BY display_name, principal_id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []TenantProfile
	for rows.Next() {
		var (
			prof        TenantProfile
			role        string
			settingsRaw []byte
		)
		if err := rows.Scan(&prof.PrincipalID, &role, &prof.TenantID, &prof.Active, &prof.DisplayName, &settingsRaw); err != nil {
			return nil, err
		}
		prof.Role = parseRole(role)
		if len(settingsRaw) > 0 {
			if err := json.Unmarshal(settingsRaw, &prof.Settings); err != nil {
				return nil, err
			}
		}
		profiles = append(profiles, prof)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// parseRole maps a stored role string onto the closed enumeration. An
// unknown value yields the zero Role, which the evaluator denies across
// the board.
func parseRole(raw string) authz.Role {
	role := authz.Role(raw)
	if !role.Valid() {
		return ""
	}
	return role
}

func roleParam(role *authz.Role) *string {
	if role == nil {
		return nil
	}
	s := string(*role)
	return &s
}

var _ Store = (*Repository)(nil)
