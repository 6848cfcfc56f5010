// Package audit persists a trail of mutations. Actions performed under an
// active impersonation binding are attributed to both identities: the
// acting super admin's principal ID and the assumed tenant's scope.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapia-health/therapia/internal/profile"
)

// Entry is one record in audit_logs.
type Entry struct {
	ActorID      uuid.UUID
	TenantID     uuid.UUID
	Impersonated bool
	Action       string
	Entity       string
	EntityID     string
	Meta         map[string]any
	At           time.Time
}

// Recorder writes entries into audit_logs.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record persists the entry. Attribution fields must already be filled;
// use Mutation to derive them from the acting profile.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, tenant_id, impersonated, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, '0001-01-01 00:00:00Z'::timestamptz), NOW()))`,
		entry.ActorID, tenantParam(entry.TenantID), entry.Impersonated,
		entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.At)
	return err
}

// Mutation builds an entry attributed to the acting profile. For an
// impersonation overlay the actor stays the super admin while the tenant
// is the assumed one, so the trail carries both identities.
func Mutation(prof *profile.TenantProfile, action, entity, entityID string, meta map[string]any) Entry {
	entry := Entry{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	}
	if prof != nil {
		entry.ActorID = prof.PrincipalID
		entry.TenantID = prof.TenantID
		entry.Impersonated = prof.Impersonating
	}
	return entry
}

func tenantParam(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
