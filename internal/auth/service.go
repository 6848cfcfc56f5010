package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/therapia-health/therapia/internal/shared"
)

// DefaultLogoutTimeout bounds the remote invalidation race during logout.
const DefaultLogoutTimeout = 3 * time.Second

// SessionInvalidator removes a session from the remote session store.
// *shared.SessionManager satisfies it.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, sessionID string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo          Repository
	remote        SessionInvalidator
	logoutTimeout time.Duration
	logger        *slog.Logger
}

// NewService constructs a new Service. A non-positive logoutTimeout falls
// back to DefaultLogoutTimeout.
func NewService(repo Repository, remote SessionInvalidator, logoutTimeout time.Duration, logger *slog.Logger) *Service {
	if logoutTimeout <= 0 {
		logoutTimeout = DefaultLogoutTimeout
	}
	return &Service{repo: repo, remote: remote, logoutTimeout: logoutTimeout, logger: logger}
}

// Authenticate validates email/password credentials. All failure modes
// collapse into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, user *User, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, user.ID, expiresAt, ip, ua)
}

// Logout races remote session invalidation against the configured
// timeout. Whichever finishes first governs the returned error, but the
// caller's local session always ends logged out: a slow or failed remote
// invalidation must never leave the client believing it is still
// authenticated, so the session is cleared before the race is reported.
func (s *Service) Logout(ctx context.Context, sess *shared.Session) error {
	if sess == nil {
		return nil
	}
	sessionID := sess.ID
	sess.ClearPrincipal()

	done := make(chan error, 1)
	go func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		defer cancel()
		if err := s.repo.DeleteSession(rctx, sessionID); err != nil {
			done <- err
			return
		}
		done <- s.remote.Invalidate(rctx, sessionID)
	}()

	select {
	case err := <-done:
		if err != nil && s.logger != nil {
			s.logger.Warn("remote session invalidation failed", slog.Any("error", err))
		}
		return err
	case <-time.After(s.logoutTimeout):
		if s.logger != nil {
			s.logger.Warn("remote session invalidation timed out", slog.String("session_id", sessionID))
		}
		return shared.ErrSessionTimeout
	}
}
