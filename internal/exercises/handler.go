package exercises

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
)

// Handler exposes exercise prescription endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers exercise routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.prescribe)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type prescribePayload struct {
	PatientID          string `json:"patient_id" validate:"required,uuid4"`
	PatientPrincipalID string `json:"patient_principal_id" validate:"omitempty,uuid4"`
	Title              string `json:"title" validate:"required,max=200"`
	Instructions       string `json:"instructions" validate:"max=8000"`
	Frequency          string `json:"frequency" validate:"max=120"`
}

type updatePayload struct {
	Title        string `json:"title" validate:"required,max=200"`
	Instructions string `json:"instructions" validate:"max=8000"`
	Frequency    string `json:"frequency" validate:"max=120"`
	Active       bool   `json:"active"`
}

type prescriptionResponse struct {
	ID           string `json:"id"`
	PatientID    string `json:"patient_id"`
	TherapistID  string `json:"therapist_id"`
	Title        string `json:"title"`
	Instructions string `json:"instructions,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Active       bool   `json:"active"`
}

func toResponse(p *Prescription) prescriptionResponse {
	return prescriptionResponse{
		ID:           p.ID.String(),
		PatientID:    p.PatientID.String(),
		TherapistID:  p.TherapistID.String(),
		Title:        p.Title,
		Instructions: p.Instructions,
		Frequency:    p.Frequency,
		Active:       p.Active,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	rows, err := h.service.List(r.Context(), prof)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]prescriptionResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed prescription id")
		return
	}
	p, err := h.service.Get(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) prescribe(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	var payload prescribePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	patientID, _ := uuid.Parse(payload.PatientID)
	var principalID uuid.UUID
	if payload.PatientPrincipalID != "" {
		principalID, _ = uuid.Parse(payload.PatientPrincipalID)
	}
	p, err := h.service.Prescribe(r.Context(), prof, PrescribeInput{
		PatientID:          patientID,
		PatientPrincipalID: principalID,
		Title:              payload.Title,
		Instructions:       payload.Instructions,
		Frequency:          payload.Frequency,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed prescription id")
		return
	}
	var payload updatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Update(r.Context(), prof, id, UpdateInput{
		Title:        payload.Title,
		Instructions: payload.Instructions,
		Frequency:    payload.Frequency,
		Active:       payload.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed prescription id")
		return
	}
	if err := h.service.Delete(r.Context(), prof, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
