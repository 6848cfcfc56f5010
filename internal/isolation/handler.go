package isolation

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/authz"
	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// SweepEnqueuer submits an asynchronous full-platform sweep. Satisfied
// by the jobs client.
type SweepEnqueuer interface {
	EnqueueSweep(ctx context.Context, tenantIDs []uuid.UUID) error
}

// Handler exposes the super-admin isolation diagnostics.
type Handler struct {
	logger   *slog.Logger
	auditor  *Auditor
	enqueuer SweepEnqueuer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, auditor *Auditor, enqueuer SweepEnqueuer) *Handler {
	return &Handler{logger: logger, auditor: auditor, enqueuer: enqueuer}
}

// MountRoutes registers isolation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/isolation/check", h.check)
	r.Post("/isolation/sweep", h.sweep)
}

// check runs a synchronous pairwise audit between two clinics.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	if !authz.Can(prof, authz.PermPlatformAnalyticsView) {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	tenantA, errA := uuid.Parse(r.URL.Query().Get("tenant_a"))
	tenantB, errB := uuid.Parse(r.URL.Query().Get("tenant_b"))
	if errA != nil || errB != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "tenant_a and tenant_b must be clinic ids")
		return
	}
	violations, err := h.auditor.Sweep(r.Context(), tenantA, tenantB)
	if err != nil {
		h.logger.Error("isolation check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "isolation check failed")
		return
	}
	if violations == nil {
		violations = []Violation{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"clean":      len(violations) == 0,
		"violations": violations,
	})
}

// sweep queues the full-platform audit to run in the background.
func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	if !authz.Can(prof, authz.PermPlatformAnalyticsView) {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "job queue not configured")
		return
	}
	if err := h.enqueuer.EnqueueSweep(r.Context(), nil); err != nil {
		h.logger.Error("enqueue sweep", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "could not queue sweep")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
