package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
)

// Handler exposes appointment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.reschedule)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

type appointmentPayload struct {
	PatientID   string `json:"patient_id" validate:"required,uuid4"`
	TherapistID string `json:"therapist_id" validate:"required,uuid4"`
	StartsAt    string `json:"starts_at" validate:"required"`
	EndsAt      string `json:"ends_at" validate:"required"`
	Notes       string `json:"notes" validate:"max=4000"`
}

type reschedulePayload struct {
	StartsAt string `json:"starts_at" validate:"required"`
	EndsAt   string `json:"ends_at" validate:"required"`
	Notes    string `json:"notes" validate:"max=4000"`
}

type appointmentResponse struct {
	ID          string `json:"id"`
	PatientID   string `json:"patient_id"`
	TherapistID string `json:"therapist_id"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
}

func toResponse(a *Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID.String(),
		PatientID:   a.PatientID.String(),
		TherapistID: a.TherapistID.String(),
		StartsAt:    a.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:      a.EndsAt.UTC().Format(time.RFC3339),
		Status:      string(a.Status),
		Notes:       a.Notes,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	from := parseTime(r.URL.Query().Get("from"))
	if from.IsZero() {
		from = time.Now().UTC().Truncate(24 * time.Hour)
	}
	to := parseTime(r.URL.Query().Get("to"))

	rows, err := h.service.List(r.Context(), prof, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]appointmentResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed appointment id")
		return
	}
	a, err := h.service.Get(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	var payload appointmentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	startsAt, endsAt, ok := h.parseWindow(w, payload.StartsAt, payload.EndsAt)
	if !ok {
		return
	}
	patientID, _ := uuid.Parse(payload.PatientID)
	therapistID, _ := uuid.Parse(payload.TherapistID)
	a, err := h.service.Create(r.Context(), prof, CreateInput{
		PatientID:   patientID,
		TherapistID: therapistID,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed appointment id")
		return
	}
	var payload reschedulePayload
	if !h.decode(w, r, &payload) {
		return
	}
	startsAt, endsAt, ok := h.parseWindow(w, payload.StartsAt, payload.EndsAt)
	if !ok {
		return
	}
	a, err := h.service.Reschedule(r.Context(), prof, id, RescheduleInput{
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Notes:    payload.Notes,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, prof *profile.TenantProfile, id uuid.UUID) (*Appointment, error)) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed appointment id")
		return
	}
	a, err := op(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := httpx.DecodeJSON(r, payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) parseWindow(w http.ResponseWriter, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	startsAt := parseTime(rawStart)
	endsAt := parseTime(rawEnd)
	if startsAt.IsZero() || endsAt.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "timestamps must be RFC 3339")
		return time.Time{}, time.Time{}, false
	}
	return startsAt, endsAt, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidWindow) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	httpx.RespondError(w, err)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
