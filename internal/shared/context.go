package shared

import "context"

// sessionContextKey is unexported so only this package can collide with it.
type sessionContextKey struct{}

// ContextWithSession binds the request's session to the context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the bound session, or nil for an anonymous
// request.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
