package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Card vault errors (VAULT_*)
	ErrorCodeVaultNotFound ErrorCode = "VAULT_NOT_FOUND"
	ErrorCodeVaultConflict ErrorCode = "VAULT_CONFLICT"

	// Payment session errors (SESSION_*)
	ErrorCodeSessionNoAccess     ErrorCode = "SESSION_NO_ACCESS"
	ErrorCodeSessionInvalidState ErrorCode = "SESSION_INVALID_STATE"

	// Payment gateway errors (GATEWAY_*)
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout  ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayRejected ErrorCode = "GATEWAY_REJECTED"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Unsupported operations (UNSUPPORTED_*)
	ErrorCodeRefundNotSupported ErrorCode = "UNSUPPORTED_REFUND"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// GetErrorCode extracts the error code from an error, returns empty string
// if the error is not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

var (
	ErrVaultNotFound = NewDomainError(ErrorCodeVaultNotFound, "no vault record for user")
	ErrVaultConflict = NewDomainError(ErrorCodeVaultConflict, "vault record already exists for user")

	// ErrSessionNoAccess indicates a session with a non-zero amount but no
	// access pair: CreatePayment was skipped or its result discarded. This
	// is a programmer error on the caller's side, not a retryable condition.
	ErrSessionNoAccess     = NewDomainError(ErrorCodeSessionNoAccess, "session has no access pair for a non-zero amount")
	ErrSessionInvalidState = NewDomainError(ErrorCodeSessionInvalidState, "session is in invalid state for this operation")

	// ErrRefundNotSupported marks the refund path as a deliberate no-op:
	// refunds are handled through a manual back-office process.
	ErrRefundNotSupported = NewDomainError(ErrorCodeRefundNotSupported, "refunds are handled out-of-band")
)
