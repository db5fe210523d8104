package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryDeclined          ErrorCategory = "declined"
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	CategoryInvalidCard       ErrorCategory = "invalid_card"
	CategoryExpiredCard       ErrorCategory = "expired_card"
	CategoryInvalidToken      ErrorCategory = "invalid_token"
	CategoryTradeState        ErrorCategory = "trade_state"
	CategorySystemError       ErrorCategory = "system_error"
	CategoryNetworkError      ErrorCategory = "network_error"
	CategoryInvalidRequest    ErrorCategory = "invalid_request"
)

// PaymentError represents a payment processing error with detailed context.
// GatewayMessage carries the gateway's own wording verbatim; it often has to
// reach the end customer and must not be replaced by a generic failure.
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	IsRetriable    bool
	Category       ErrorCategory
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
	}
}

// AsPaymentError extracts a PaymentError from an error chain, or nil.
func AsPaymentError(err error) *PaymentError {
	var pe *PaymentError
	if stderrors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsTransportError reports whether an error is a network-level failure
// talking to the gateway, as opposed to a gateway rejection. Only read-only
// calls may be retried on these.
func IsTransportError(err error) bool {
	pe := AsPaymentError(err)
	return pe != nil && pe.Category == CategoryNetworkError
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
