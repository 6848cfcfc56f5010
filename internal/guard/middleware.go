package guard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/therapia-health/therapia/internal/impersonate"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// Middleware resolves the session into a profile, applies any active
// impersonation overlay, and enforces the policy table before handlers
// run. The resolved (overlaid) profile is injected into the request
// context for downstream permission checks and tenant scoping.
// DenialCounter records role-gated denials. Satisfied by
// *observability.Metrics.
type DenialCounter interface {
	CountDenial(role string)
}

type Middleware struct {
	Policies    []Policy
	Resolver    *profile.Resolver
	Impersonate *impersonate.Manager
	Redirector  Redirector
	Denials     DenialCounter
	Logger      *slog.Logger
}

// Handler wraps next with resolution and guarding.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := shared.SessionFromContext(ctx)

		var prof *profile.TenantProfile
		if sess != nil {
			resolved, err := m.Resolver.Resolve(ctx, sess.ID)
			switch {
			case err == nil:
				prof = m.Impersonate.Overlay(sess, resolved)
			case errors.Is(err, shared.ErrUnauthenticated):
				// Anonymous request; the table decides what it may see.
			default:
				if m.Logger != nil {
					m.Logger.Error("profile resolution", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		decision := Evaluate(m.Policies, r.URL.Path, prof)
		if !decision.Allow {
			if decision.Denied && m.Denials != nil {
				m.Denials.CountDenial(string(prof.SubjectRole()))
			}
			http.Redirect(w, r, m.Redirector.Target(r, decision.RedirectTo), http.StatusSeeOther)
			return
		}

		if prof != nil {
			ctx = profile.NewContext(ctx, prof)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
