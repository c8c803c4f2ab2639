package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes for the fiscal document taxonomy.
// Callers branch on these codes, never on message text.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeInvalidState       = "INVALID_STATE"
	CodeImmutable          = "IMMUTABLE_FIELD"
	CodeBusinessRule       = "BUSINESS_RULE_VIOLATION"
	CodeAllocation         = "ALLOCATION_FAILED"
	CodeIntegrityViolation = "INTEGRITY_VIOLATION"
)

// NewValidationError creates a recoverable input validation error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewInvalidStateError creates an error for an operation illegal in the current lifecycle state
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewImmutabilityError creates an error for attempted mutation of frozen fields.
// These indicate a programming error upstream and are logged at higher severity.
func NewImmutabilityError(message string) *DomainError {
	return NewDomainError(CodeImmutable, message)
}

// NewBusinessRuleError creates an error for an unmet business precondition
func NewBusinessRuleError(message string) *DomainError {
	return NewDomainError(CodeBusinessRule, message)
}

// NewAllocationError creates an error for a failed sequence allocation.
// Allocation errors are safe to retry with backoff: no number is consumed
// unless the surrounding transaction commits.
func NewAllocationError(message string) *DomainError {
	return NewDomainError(CodeAllocation, message)
}

// NewIntegrityViolationError creates an error for a broken fingerprint chain.
// Fatal for the affected tenant's ledger; issuance must halt pending review.
func NewIntegrityViolationError(message string) *DomainError {
	return NewDomainError(CodeIntegrityViolation, message)
}

// HasCode reports whether err is a DomainError carrying the given code
func HasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool { return HasCode(err, CodeValidation) }

// IsInvalidStateError reports whether err is an invalid-state error
func IsInvalidStateError(err error) bool { return HasCode(err, CodeInvalidState) }

// IsImmutabilityError reports whether err is an immutability error
func IsImmutabilityError(err error) bool { return HasCode(err, CodeImmutable) }

// IsAllocationError reports whether err is an allocation error
func IsAllocationError(err error) bool { return HasCode(err, CodeAllocation) }

// IsIntegrityViolationError reports whether err is an integrity violation
func IsIntegrityViolationError(err error) bool { return HasCode(err, CodeIntegrityViolation) }

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrLedgerFrozen        = NewDomainError(CodeIntegrityViolation, "Ledger is frozen pending integrity review")
)
