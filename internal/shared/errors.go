package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates no valid session behind the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProfileNotFound indicates an authenticated principal without a
	// tenant profile row. Policy treats it exactly like ErrUnauthenticated;
	// it exists as its own value so the resolver can log the anomaly.
	ErrProfileNotFound = errors.New("tenant profile not found")
	// ErrPermissionDenied indicates the resolved profile lacks the
	// required permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSessionTimeout indicates remote sign-out lost the logout race.
	ErrSessionTimeout = errors.New("session invalidation timed out")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
