package clinics

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is one tenant of the platform.
type Clinic struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Address   string
	Phone     string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries validated fields for a new clinic.
type CreateInput struct {
	Name    string
	Slug    string
	Address string
	Phone   string
	Email   string
}

// UpdateInput carries the mutable clinic fields.
type UpdateInput struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Active  bool
}

// Overview is a platform-wide activity snapshot for one clinic.
type Overview struct {
	ClinicID     uuid.UUID
	ClinicName   string
	Patients     int
	Appointments int
	PaymentsSum  int64
}
