package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/account-api/internal/i18n"
	"github.com/jonathan/account-api/internal/logging"
	"github.com/jonathan/account-api/internal/types"
)

// maxBodyBytes caps request bodies. Every accepted payload is a couple of short strings.
const maxBodyBytes = 64 << 10

// validatable is implemented by the request DTOs in internal/types.
type validatable interface {
	Validate() error
}

// responder writes JSON bodies and localized error responses.
type responder struct {
	translator *i18n.Translator
	logger     logging.Logger
}

// writeJSON writes a JSON response
func (rs *responder) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error(context.Background(), "failed to encode JSON response", "error", err)
	}
}

// writeError classifies err and writes {type, message} in the request's locale.
// Server-side failures are logged; their details never reach the client.
func (rs *responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	info := classify(err)
	if info.status >= http.StatusInternalServerError {
		rs.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	rs.writeJSON(w, info.status, types.ErrorResponse{
		Type:    info.typ,
		Message: rs.translator.TranslateContext(r.Context(), info.key, info.args...),
	})
}

// decode reads a JSON body into dst and validates it.
func (rs *responder) decode(w http.ResponseWriter, r *http.Request, dst validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrInvalidRequestBody{Err: err}
	}
	if err := dst.Validate(); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError reports the first failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ErrValidation{Field: fieldErrs[0].Field(), Rule: fieldErrs[0].Tag()}
	}
	return &ErrValidation{Field: "body", Rule: "invalid"}
}
