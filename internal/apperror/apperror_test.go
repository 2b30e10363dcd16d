package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/booknest/internal/apperror"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", apperror.NotFound("book", "b1"), apperror.ErrNotFound},
		{"validation", apperror.ValidationFailed("title", "title is required"), apperror.ErrValidation},
		{"duplicate", apperror.Duplicate("email taken"), apperror.ErrDuplicate},
		{"forbidden", apperror.Forbidden("no"), apperror.ErrForbidden},
		{"denied", apperror.Denied("NotOwner", "not yours"), apperror.ErrForbidden},
		{"unauthorized", apperror.Unauthorized("log in"), apperror.ErrUnauthorized},
		{"invalid transition", apperror.InvalidTransition("pending", "delivered"), apperror.ErrInvalidTransition},
		{"not eligible", apperror.NotEligible("no delivered order"), apperror.ErrNotEligible},
		{"payment mismatch", apperror.PaymentMismatch("amount differs"), apperror.ErrPaymentMismatch},
		{"unavailable", apperror.Unavailable("gateway", errors.New("timeout")), apperror.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestMatchingThroughWrapping(t *testing.T) {
	inner := apperror.NotFound("order", "o1")
	wrapped := fmt.Errorf("loading order: %w", inner)

	assert.ErrorIs(t, wrapped, apperror.ErrNotFound)

	var appErr *apperror.AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "order not found with id o1", appErr.Message)
}

func TestDeniedCarriesReason(t *testing.T) {
	err := apperror.Denied("InsufficientRole", "librarian role required")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "InsufficientRole", appErr.Reason)
	assert.Equal(t, "librarian role required", appErr.Message)
}

func TestValidationFailedAll(t *testing.T) {
	t.Run("multiple violations", func(t *testing.T) {
		err := apperror.ValidationFailedAll([]apperror.Violation{
			{Field: "title", Message: "title is required"},
			{Field: "price", Message: "price must be greater than zero"},
		})

		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Len(t, err.Violations, 2)
		assert.Equal(t, "validation failed", err.Message)
	})

	t.Run("single violation becomes the message", func(t *testing.T) {
		err := apperror.ValidationFailedAll([]apperror.Violation{
			{Field: "rating", Message: "rating must be between 1 and 5"},
		})
		assert.Equal(t, "rating must be between 1 and 5", err.Message)
	})
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := apperror.InvalidTransition("delivered", "cancelled")
	assert.Equal(t, "cannot transition order from delivered to cancelled", err.Error())
}
