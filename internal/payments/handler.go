package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/therapia-health/therapia/internal/platform/httpx"
	"github.com/therapia-health/therapia/internal/profile"
)

// IdempotencyKeyHeader carries the client dedup key for payment creation.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler exposes payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/refund", h.refund)
}

type paymentPayload struct {
	PatientID     string `json:"patient_id" validate:"required,uuid4"`
	PayerID       string `json:"payer_id" validate:"required,uuid4"`
	AppointmentID string `json:"appointment_id" validate:"omitempty,uuid4"`
	AmountCents   int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	Method        string `json:"method" validate:"required,oneof=cash card transfer"`
	Reference     string `json:"reference" validate:"max=120"`
}

type paymentResponse struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Method        string `json:"method"`
	Reference     string `json:"reference,omitempty"`
}

func toResponse(p *Payment) paymentResponse {
	res := paymentResponse{
		ID:          p.ID.String(),
		PatientID:   p.PatientID.String(),
		AmountCents: p.AmountCents,
		Amount:      FormatAmount(p.AmountCents, p.Currency),
		Currency:    p.Currency,
		Status:      string(p.Status),
		Method:      p.Method,
		Reference:   p.Reference,
	}
	if p.AppointmentID != uuid.Nil {
		res.AppointmentID = p.AppointmentID.String()
	}
	return res
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	rows, pagination, err := h.service.List(r.Context(), prof, page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]paymentResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed payment id")
		return
	}
	p, err := h.service.Get(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	var payload paymentPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	patientID, _ := uuid.Parse(payload.PatientID)
	payerID, _ := uuid.Parse(payload.PayerID)
	var appointmentID uuid.UUID
	if payload.AppointmentID != "" {
		appointmentID, _ = uuid.Parse(payload.AppointmentID)
	}

	p, err := h.service.Create(r.Context(), prof, CreateInput{
		PatientID:     patientID,
		PayerID:       payerID,
		AppointmentID: appointmentID,
		AmountCents:   payload.AmountCents,
		Currency:      payload.Currency,
		Method:        payload.Method,
		Reference:     payload.Reference,
	}, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrUnknownCurrency) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	prof := profile.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed payment id")
		return
	}
	p, err := h.service.Refund(r.Context(), prof, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}
