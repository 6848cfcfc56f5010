package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/therapia-health/therapia/internal/appointments"
	"github.com/therapia-health/therapia/internal/auth"
	"github.com/therapia-health/therapia/internal/clinics"
	"github.com/therapia-health/therapia/internal/exercises"
	"github.com/therapia-health/therapia/internal/guard"
	"github.com/therapia-health/therapia/internal/impersonate"
	"github.com/therapia-health/therapia/internal/isolation"
	"github.com/therapia-health/therapia/internal/observability"
	"github.com/therapia-health/therapia/internal/patients"
	"github.com/therapia-health/therapia/internal/payments"
	"github.com/therapia-health/therapia/internal/shared"
	"github.com/therapia-health/therapia/internal/users"
	"github.com/therapia-health/therapia/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          guard.Middleware

	AuthHandler          *auth.Handler
	PatientsHandler      *patients.Handler
	AppointmentsHandler  *appointments.Handler
	PaymentsHandler      *payments.Handler
	ExercisesHandler     *exercises.Handler
	UsersHandler         *users.Handler
	ClinicsHandler       *clinics.Handler
	ImpersonationHandler *impersonate.Handler
	IsolationHandler     *isolation.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	// Everything below passes through the route guard: the session is
	// resolved to a tenant profile, impersonation overlays apply, and
	// the policy table decides access before any handler runs.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Handler)

		params.AuthHandler.MountRoutes(r)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, guard.DashboardPath, http.StatusSeeOther)
		})

		r.Route(guard.DashboardPath, func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status":"ok"}`))
			})
			r.Route("/patients", params.PatientsHandler.MountRoutes)
			r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
			r.Route("/exercises", params.ExercisesHandler.MountRoutes)
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
		})

		r.Route(guard.SuperAdmin, func(r chi.Router) {
			if params.ClinicsHandler != nil {
				r.Route("/clinics", params.ClinicsHandler.MountRoutes)
			}
			if params.ImpersonationHandler != nil {
				params.ImpersonationHandler.MountRoutes(r)
			}
			if params.IsolationHandler != nil {
				params.IsolationHandler.MountRoutes(r)
			}
		})
	})

	return r
}
