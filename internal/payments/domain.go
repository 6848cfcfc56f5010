package payments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

// Payment records money received for care within one clinic. Amounts are
// stored in minor units to avoid float drift.
type Payment struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	PatientID     uuid.UUID
	PayerID       uuid.UUID // principal who owns the "view own" scope
	AppointmentID uuid.UUID // optional, zero when unlinked
	AmountCents   int64
	Currency      string
	Status        Status
	Method        string
	Reference     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateInput carries validated fields for a new payment.
type CreateInput struct {
	PatientID     uuid.UUID
	PayerID       uuid.UUID
	AppointmentID uuid.UUID
	AmountCents   int64
	Currency      string
	Method        string
	Reference     string
}
