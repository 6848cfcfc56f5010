package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/therapia-health/therapia/internal/auth"
	"github.com/therapia-health/therapia/internal/shared"
)

type stubRepo struct {
	user         *auth.User
	deleteErr    error
	deleteBlocks bool
	deleteCalled chan struct{}
	createErr    error
	createdID    string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	s.createdID = id
	return s.createErr
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	if s.deleteCalled != nil {
		close(s.deleteCalled)
	}
	if s.deleteBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.deleteErr
}

type stubInvalidator struct {
	err    error
	blocks bool
	calls  int
}

func (s *stubInvalidator) Invalidate(ctx context.Context, sessionID string) error {
	s.calls++
	if s.blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: uuid.New(), Email: "staff@clinic.test", PasswordHash: string(hashed), IsActive: true}
}

func TestAuthenticateSuccess(t *testing.T) {
	user := activeUser(t, "correct-horse")
	svc := auth.NewService(&stubRepo{user: user}, &stubInvalidator{}, 0, nil)

	got, err := svc.Authenticate(context.Background(), user.Email, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticateFailureModesCollapse(t *testing.T) {
	user := activeUser(t, "correct-horse")
	inactive := activeUser(t, "correct-horse")
	inactive.IsActive = false

	cases := []struct {
		name     string
		repo     *stubRepo
		password string
	}{
		{name: "unknown email", repo: &stubRepo{}, password: "correct-horse"},
		{name: "wrong password", repo: &stubRepo{user: user}, password: "wrong"},
		{name: "inactive account", repo: &stubRepo{user: inactive}, password: "correct-horse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := auth.NewService(tc.repo, &stubInvalidator{}, 0, nil)
			_, err := svc.Authenticate(context.Background(), "staff@clinic.test", tc.password)
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestLogoutCompletesWhenRemoteIsFast(t *testing.T) {
	repo := &stubRepo{}
	remote := &stubInvalidator{}
	svc := auth.NewService(repo, remote, time.Second, nil)

	sess := &shared.Session{ID: "sess-1"}
	sess.SetPrincipal(uuid.NewString())

	err := svc.Logout(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.calls)
	assert.Empty(t, sess.Principal())
}

func TestLogoutTimesOutDeterministically(t *testing.T) {
	// The remote side never resolves; local state must still end logged
	// out within the configured bound.
	repo := &stubRepo{deleteBlocks: true, deleteCalled: make(chan struct{})}
	svc := auth.NewService(repo, &stubInvalidator{}, 50*time.Millisecond, nil)

	sess := &shared.Session{ID: "sess-2"}
	sess.SetPrincipal(uuid.NewString())

	start := time.Now()
	err := svc.Logout(context.Background(), sess)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, shared.ErrSessionTimeout)
	assert.Less(t, elapsed, time.Second, "logout must not wait for the remote side")
	assert.Empty(t, sess.Principal(), "local state is logged out regardless of the race")
	<-repo.deleteCalled
}

func TestLogoutReportsRemoteFailureButClearsLocally(t *testing.T) {
	boom := errors.New("redis down")
	svc := auth.NewService(&stubRepo{}, &stubInvalidator{err: boom}, time.Second, nil)

	sess := &shared.Session{ID: "sess-3"}
	sess.SetPrincipal(uuid.NewString())

	err := svc.Logout(context.Background(), sess)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, sess.Principal())
}

func TestLogoutNilSessionIsNoop(t *testing.T) {
	svc := auth.NewService(&stubRepo{}, &stubInvalidator{}, time.Second, nil)
	assert.NoError(t, svc.Logout(context.Background(), nil))
}
