package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/shared"
)

// SessionManagerProvider adapts the redis session manager to the
// SessionProvider contract. The session token is the session ID carried
// by the cookie.
type SessionManagerProvider struct {
	Manager *shared.SessionManager
}

// Validate implements SessionProvider.
func (p SessionManagerProvider) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := p.Manager.Lookup(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		// A corrupt principal reference is treated as no session at all.
		return uuid.Nil, shared.ErrUnauthenticated
	}
	return id, nil
}

var _ SessionProvider = SessionManagerProvider{}
