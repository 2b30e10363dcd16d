// Package handler contains the HTTP handlers. Handlers decode requests,
// call the services, and encode results; every business rule lives a
// layer down.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/model"
)

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error      string               `json:"error"`
	Message    string               `json:"message"`
	Reason     string               `json:"reason,omitempty"`
	Violations []apperror.Violation `json:"violations,omitempty"`
}

// writeJSON sends a JSON response. Headers and status must be written
// before the body; Encode writes the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError translates a service error into an HTTP status. Services
// never see status codes; this switch is the only place the taxonomy
// meets HTTP.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Unknown error: log it, return a generic 500. The raw message
		// stays out of the response.
		slog.Error("unhandled internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an unexpected error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrInvalidTransition):
		status, errorType = http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, apperror.ErrPaymentMismatch):
		status, errorType = http.StatusBadRequest, "payment_mismatch"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotEligible):
		status, errorType = http.StatusForbidden, "not_eligible"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrDuplicate):
		status, errorType = http.StatusConflict, "duplicate"
	case errors.Is(err, apperror.ErrUnavailable):
		status, errorType = http.StatusServiceUnavailable, "unavailable"
	}

	writeJSON(w, status, ErrorResponse{
		Error:      errorType,
		Message:    appErr.Message,
		Reason:     appErr.Reason,
		Violations: appErr.Violations,
	})
}

// decodeJSON decodes a request body into dst, rejecting malformed JSON
// as a validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON request body")
	}
	return nil
}

// requirePrincipal fetches the authenticated account placed in the
// context by auth.RequireAuth. Routes mounted behind that middleware
// always have one; the error path guards against wiring mistakes.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	account, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return nil, false
	}
	return account, true
}
