package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		want int
	}{
		{"missing field", ErrCodeValidationMissingField, http.StatusBadRequest},
		{"invalid json", ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{"invalid plan", ErrCodeBillingInvalidPlan, http.StatusBadRequest},
		{"invalid signature", ErrCodeBillingInvalidSignature, http.StatusBadRequest},
		{"token missing", ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{"token expired", ErrCodeAuthTokenExpired, http.StatusUnauthorized},
		{"user not found", ErrCodeNotFoundUser, http.StatusNotFound},
		{"plan already active", ErrCodeConflictPlanActive, http.StatusConflict},
		{"concurrent modification", ErrCodeConflictConcurrent, http.StatusConflict},
		{"database error", ErrCodeInternalDB, http.StatusInternalServerError},
		{"provider unavailable", ErrCodeUpstreamProvider, http.StatusBadGateway},
		{"unknown code", ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeInternalDB, "failed to load user", inner)

	assert.Equal(t, "internal_database_error: failed to load user", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())

	// errors.As must find the AppError through wrapping.
	wrapped := &AppError{Code: ErrCodeInternalUnexpected, Message: "outer", Err: err}
	var target *AppError
	require.True(t, errors.As(wrapped.Unwrap(), &target))
	assert.Equal(t, ErrCodeInternalDB, target.Code)
}

func TestAppError_WithDetails(t *testing.T) {
	base := NewAppError(ErrCodeBillingInvalidPlan, "unknown plan", nil)
	base.Details = map[string]any{"plan": "gold"}

	derived := base.WithDetails(map[string]any{"catalog_size": 3})

	assert.Equal(t, map[string]any{"plan": "gold"}, base.Details, "original must not be mutated")
	assert.Equal(t, "gold", derived.Details["plan"])
	assert.Equal(t, 3, derived.Details["catalog_size"])
	assert.Equal(t, base.Code, derived.Code)
}
