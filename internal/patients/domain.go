package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient represents a patient record owned by one clinic.
type Patient struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FullName  string
	Email     string
	Phone     string
	BirthDate time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries validated fields for a new patient.
type CreateInput struct {
	FullName  string
	Email     string
	Phone     string
	BirthDate time.Time
	Notes     string
}

// UpdateInput carries validated fields for an update.
type UpdateInput struct {
	FullName string
	Email    string
	Phone    string
	Notes    string
}
