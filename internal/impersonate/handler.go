package impersonate

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
)

// Handler exposes the super-admin impersonation endpoints.
type Handler struct {
	logger    *slog.Logger
	manager   *Manager
	recorder  *audit.Recorder
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, manager *Manager, recorder *audit.Recorder) *Handler {
	return &Handler{logger: logger, manager: manager, recorder: recorder, validator: validator.New()}
}

// MountRoutes registers impersonation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/impersonation", h.status)
	r.Post("/impersonation", h.assume)
	r.Delete("/impersonation", h.stop)
}

type assumePayload struct {
	TenantID string `json:"tenant_id" validate:"required,uuid4"`
}

type statusResponse struct {
	Impersonating bool   `json:"impersonating"`
	TenantID      string `json:"tenant_id,omitempty"`
	Role          string `json:"role"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if prof == nil || sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	res := statusResponse{
		Impersonating: h.manager.IsImpersonating(sess),
		Role:          string(prof.Role),
	}
	if tenant, ok := h.manager.AssumedTenant(sess); ok {
		res.TenantID = tenant.String()
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) assume(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if prof == nil || sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var payload assumePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	target, err := uuid.Parse(payload.TenantID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed tenant id")
		return
	}

	overlay, err := h.manager.AssumeTenant(sess, prof, target)
	if err != nil {
		switch {
		case errors.Is(err, ErrImpersonationNotAllowed):
			httpx.RespondError(w, shared.ErrPermissionDenied)
		case errors.Is(err, ErrInvalidTenant):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	h.record(r, prof, "impersonation.start", target.String())
	httpx.JSON(w, http.StatusOK, statusResponse{
		Impersonating: true,
		TenantID:      target.String(),
		Role:          string(overlay.Role),
	})
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if prof == nil || sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	assumed, was := h.manager.AssumedTenant(sess)
	restored := h.manager.StopImpersonating(sess, prof)
	if was {
		h.record(r, prof, "impersonation.stop", assumed.String())
	}
	httpx.JSON(w, http.StatusOK, statusResponse{Impersonating: false, Role: string(restored.Role)})
}

func (h *Handler) record(r *http.Request, prof *profile.TenantProfile, action, tenantID string) {
	if h.recorder == nil {
		return
	}
	entry := audit.Mutation(prof, action, "tenant", tenantID, nil)
	if err := h.recorder.Record(r.Context(), entry); err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
