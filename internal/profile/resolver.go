package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/shared"
)

// SessionProvider validates a session token and yields the principal ID
// bound to it. An anonymous or unknown token is reported as
// shared.ErrUnauthenticated.
type SessionProvider interface {
	Validate(ctx context.Context, token string) (uuid.UUID, error)
}

// Store is the persistence surface the resolver reads profiles from.
type Store interface {
	GetProfile(ctx context.Context, principalID uuid.UUID) (*TenantProfile, error)
	UpdateProfile(ctx context.Context, principalID uuid.UUID, patch Patch) error
}

// Resolver turns session tokens into tenant profiles. A successful
// resolution is cached in the request context by the caller; failures are
// never cached.
type Resolver struct {
	sessions SessionProvider
	store    Store
	logger   *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(sessions SessionProvider, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{sessions: sessions, store: store, logger: logger}
}

// Resolve validates the token and fetches the stored profile. A cached
// profile in ctx is returned as-is; use Refresh after a role change.
//
// Fail-closed: an invalid token and an authenticated principal without a
// profile row both come back as shared.ErrUnauthenticated. The latter is
// logged as an anomaly since it usually indicates a provisioning bug.
func (r *Resolver) Resolve(ctx context.Context, token string) (*TenantProfile, error) {
	if cached := FromContext(ctx); cached != nil {
		return cached, nil
	}
	return r.resolve(ctx, token)
}

// Refresh forces a re-fetch, bypassing and superseding any context-cached
// profile. Callers must replace their context value with the result so
// cached permission decisions are invalidated.
func (r *Resolver) Refresh(ctx context.Context, token string) (*TenantProfile, error) {
	return r.resolve(ctx, token)
}

func (r *Resolver) resolve(ctx context.Context, token string) (*TenantProfile, error) {
	if token == "" {
		return nil, shared.ErrUnauthenticated
	}
	principalID, err := r.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	prof, err := r.store.GetProfile(ctx, principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrProfileNotFound) {
			if r.logger != nil {
				r.logger.Warn("principal without tenant profile",
					slog.String("principal_id", principalID.String()))
			}
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	return prof, nil
}

type profileContextKey struct{}

// NewContext stores the resolved profile in ctx for the remainder of the
// request.
func NewContext(ctx context.Context, prof *TenantProfile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, prof)
}

// FromContext extracts the resolved profile, nil when unauthenticated.
func FromContext(ctx context.Context) *TenantProfile {
	prof, _ := ctx.Value(profileContextKey{}).(*TenantProfile)
	return prof
}
