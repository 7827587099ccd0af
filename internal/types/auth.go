// Package types provides request and response types for the account API.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata, so one instance is shared.
var validate = newValidator()

// newValidator reports field errors by their JSON names. It adds a maxbytes rule
// because max counts runes and bcrypt limits bytes.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// RegisterRequest represents the request to create an account with password authentication.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72,maxbytes=72"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateMeRequest represents a profile update. Omitted fields are left unchanged.
type UpdateMeRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// ChangePasswordRequest represents a password change for the authenticated user.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,maxbytes=72"`
}

// User is the public profile returned by the API. It never carries the password hash.
type User struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	RegistrationStep int    `json:"registration_step"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// MessageResponse carries a localized confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request. Type is a stable machine-readable
// tag; Message is localized for the caller.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Validate validates the RegisterRequest.
func (r *RegisterRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the LoginRequest.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the UpdateMeRequest.
func (r *UpdateMeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ChangePasswordRequest.
func (r *ChangePasswordRequest) Validate() error {
	return validate.Struct(r)
}
