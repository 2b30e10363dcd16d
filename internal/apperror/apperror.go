// Package apperror defines the error taxonomy shared by every layer of the
// application.
//
// Services return these errors; HTTP handlers translate them to status codes
// with errors.Is/errors.As. The sentinels are the stable "kind" of an error,
// the AppError wrapper carries the human-readable message (and, for
// validation failures, the offending field).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("duplicate")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotEligible       = errors.New("not eligible")
	ErrPaymentMismatch   = errors.New("payment mismatch")
	ErrUnavailable       = errors.New("unavailable")
)

type AppError struct {
	Err        error       // sentinel identifying the error kind
	Message    string      // human-readable error message
	Field      string      // optional: field causing a validation error
	Reason     string      // optional: authorization deny reason code
	Violations []Violation // optional: per-field validation failures
}

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationFailedAll bundles several field violations into one error, so
// a caller fixing a bad request sees every problem at once.
func ValidationFailedAll(violations []Violation) *AppError {
	msg := "validation failed"
	if len(violations) == 1 {
		msg = violations[0].Message
	}
	return &AppError{
		Err:        ErrValidation,
		Message:    msg,
		Violations: violations,
	}
}

func Duplicate(message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Denied returns a Forbidden error carrying the policy's reason code
// (NotOwner, InsufficientRole, InvalidState).
func Denied(reason, message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
		Reason:  reason,
	}
}

// Unauthorized covers identity failures: missing, malformed, or expired
// credentials, and tokens whose subject has no local account.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("cannot transition order from %s to %s", from, to),
	}
}

func NotEligible(message string) *AppError {
	return &AppError{
		Err:     ErrNotEligible,
		Message: message,
	}
}

func PaymentMismatch(message string) *AppError {
	return &AppError{
		Err:     ErrPaymentMismatch,
		Message: message,
	}
}

// Unavailable wraps a collaborator failure (store, verifier, gateway,
// image host). The core never retries these — retry policy belongs to the
// caller.
func Unavailable(collaborator string, err error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s unavailable: %v", collaborator, err),
	}
}
