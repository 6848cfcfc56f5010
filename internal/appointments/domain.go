package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment represents a booked session within one clinic.
type Appointment struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	StartsAt    time.Time
	EndsAt      time.Time
	Status      Status
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput carries validated fields for a new appointment.
type CreateInput struct {
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	StartsAt    time.Time
	EndsAt      time.Time
	Notes       string
}

// RescheduleInput moves an existing appointment.
type RescheduleInput struct {
	StartsAt time.Time
	EndsAt   time.Time
	Notes    string
}
