package db

import (
	"strings"
	"time"
)

// RegistrationStep marks how far a user has progressed through sign-up.
type RegistrationStep int16

const (
	RegistrationStepAccount   RegistrationStep = 1 // credentials stored
	RegistrationStepProfile   RegistrationStep = 2
	RegistrationStepCompleted RegistrationStep = 3
)

// Valid reports whether s is a known step.
func (s RegistrationStep) Valid() bool {
	return s >= RegistrationStepAccount && s <= RegistrationStepCompleted
}

// User represents a stored account
type User struct {
	ID               int64            `json:"id"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-" db:"password_hash"` // Never serialize to JSON
	PasswordSet      bool             `json:"password_set" db:"password_set"`
	RegistrationStep RegistrationStep `json:"registration_step" db:"registration_step"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
