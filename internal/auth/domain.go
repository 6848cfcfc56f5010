package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a credentialed account (a principal's login identity).
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
