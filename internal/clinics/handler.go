package clinics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
)

// Handler exposes platform clinic endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers clinic routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/analytics", h.analytics)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type clinicPayload struct {
	Name    string `json:"name" validate:"required,max=200"`
	Slug    string `json:"slug" validate:"omitempty,max=80,lowercase,alphanum"`
	Address string `json:"address" validate:"max=400"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Active  bool   `json:"active"`
}

type clinicResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Active  bool   `json:"active"`
}

func toResponse(c *Clinic) clinicResponse {
	return clinicResponse{
		ID:      c.ID.String(),
		Name:    c.Name,
		Slug:    c.Slug,
		Address: c.Address,
		Phone:   c.Phone,
		Email:   c.Email,
		Active:  c.Active,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	rows, err := h.service.List(r.Context(), prof)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]clinicResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed clinic id")
		return
	}
	c, err := h.service.Get(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Create(r.Context(), prof, CreateInput{
		Name:    payload.Name,
		Slug:    payload.Slug,
		Address: payload.Address,
		Phone:   payload.Phone,
		Email:   payload.Email,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed clinic id")
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Update(r.Context(), prof, id, UpdateInput{
		Name:    payload.Name,
		Address: payload.Address,
		Phone:   payload.Phone,
		Email:   payload.Email,
		Active:  payload.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed clinic id")
		return
	}
	if err := h.service.Delete(r.Context(), prof, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	rows, err := h.service.Analytics(r.Context(), prof)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type overviewResponse struct {
		ClinicID     string `json:"clinic_id"`
		ClinicName   string `json:"clinic_name"`
		Patients     int    `json:"patients"`
		Appointments int    `json:"appointments"`
		PaymentsSum  int64  `json:"payments_sum_cents"`
	}
	items := make([]overviewResponse, 0, len(rows))
	for _, o := range rows {
		items = append(items, overviewResponse{
			ClinicID:     o.ClinicID.String(),
			ClinicName:   o.ClinicName,
			Patients:     o.Patients,
			Appointments: o.Appointments,
			PaymentsSum:  o.PaymentsSum,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (clinicPayload, bool) {
	var payload clinicPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return payload, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return payload, false
	}
	return payload, true
}
