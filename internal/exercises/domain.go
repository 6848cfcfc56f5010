package exercises

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is a home exercise program assigned to a patient.
type Prescription struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	PatientID          uuid.UUID
	PatientPrincipalID uuid.UUID // login owning the patient-facing view
	TherapistID        uuid.UUID
	Title              string
	Instructions       string
	Frequency          string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PrescribeInput carries validated fields for a new prescription.
type PrescribeInput struct {
	PatientID          uuid.UUID
	PatientPrincipalID uuid.UUID
	Title              string
	Instructions       string
	Frequency          string
}

// UpdateInput carries the mutable prescription fields.
type UpdateInput struct {
	Title        string
	Instructions string
	Frequency    string
	Active       bool
}
