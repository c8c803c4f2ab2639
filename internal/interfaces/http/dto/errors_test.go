package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"unknown error", ErrCodeUnknown, http.StatusInternalServerError},
		{"internal error", ErrCodeInternal, http.StatusInternalServerError},
		{"validation error", ErrCodeValidation, http.StatusBadRequest},
		{"validation required", ErrCodeValidationRequired, http.StatusBadRequest},
		{"unauthorized", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrCodeForbidden, http.StatusForbidden},
		{"token expired", ErrCodeTokenExpired, http.StatusUnauthorized},
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"already exists", ErrCodeAlreadyExists, http.StatusConflict},
		{"conflict", ErrCodeConflict, http.StatusConflict},
		{"concurrency conflict", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"invalid state", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"business rule", ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{"immutable field", ErrCodeImmutable, http.StatusConflict},
		{"allocation failed", ErrCodeAllocation, http.StatusServiceUnavailable},
		{"integrity violation", ErrCodeIntegrityViolation, http.StatusConflict},
		{"bad request", ErrCodeBadRequest, http.StatusBadRequest},
		{"invalid input", ErrCodeInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrCodeRateLimited, http.StatusTooManyRequests},
		{"unmapped code falls back to 500", "ERR_SOMETHING_NEW", http.StatusInternalServerError},
		{"empty code falls back to 500", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"validation failed", "VALIDATION_FAILED", ErrCodeValidation},
		{"invalid state", "INVALID_STATE", ErrCodeInvalidState},
		{"immutable field", "IMMUTABLE_FIELD", ErrCodeImmutable},
		{"business rule violation", "BUSINESS_RULE_VIOLATION", ErrCodeBusinessRule},
		{"allocation failed", "ALLOCATION_FAILED", ErrCodeAllocation},
		{"integrity violation", "INTEGRITY_VIOLATION", ErrCodeIntegrityViolation},
		{"not found", "NOT_FOUND", ErrCodeNotFound},
		{"already exists", "ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"already paid maps to conflict", "ALREADY_PAID", ErrCodeConflict},
		{"unauthorized", "UNAUTHORIZED", ErrCodeUnauthorized},
		{"concurrency conflict", "CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"already normalized code passes through", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown code passes through", "SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}

func TestDomainErrorStatusRoundTrip(t *testing.T) {
	// Every domain code must normalize to a transport code with a mapped status.
	for domainCode, transportCode := range DomainErrorCodeMapping {
		status := GetHTTPStatus(NormalizeErrorCode(domainCode))
		mapped, ok := ErrorCodeHTTPStatus[transportCode]
		assert.True(t, ok, "transport code %s has no status", transportCode)
		assert.Equal(t, mapped, status, "domain code %s", domainCode)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "invoice not found", "req-123")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "invoice not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.Empty(t, resp.Error.Details)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "series", Message: "series is required"},
		{Field: "quantity", Message: "quantity must be positive"},
	}
	resp := NewValidationErrorResponse("validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-456", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "series", resp.Error.Details[0].Field)
}
