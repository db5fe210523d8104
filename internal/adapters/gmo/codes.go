package gmo

import (
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
)

// ErrInfoDetail describes a single gateway ErrInfo code.
type ErrInfoDetail struct {
	Code        string
	Description string
	IsRetriable bool
	Category    pkgerrors.ErrorCategory
	UserMessage string
}

// Known ErrInfo codes. The gateway returns pipe-separated lists of these in
// the ErrInfo field whenever it rejects a request.
var errInfoDetails = map[string]ErrInfoDetail{
	"E01040010": {
		Code:        "E01040010",
		Description: "Order ID already registered",
		Category:    pkgerrors.CategoryTradeState,
		UserMessage: "This order has already been submitted for payment.",
	},
	"E01050001": {
		Code:        "E01050001",
		Description: "Amount missing or invalid",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "The payment amount is invalid.",
	},
	"E01110002": {
		Code:        "E01110002",
		Description: "Transaction not in a state that allows this operation",
		Category:    pkgerrors.CategoryTradeState,
		UserMessage: "This payment cannot be modified in its current state.",
	},
	"E01240002": {
		Code:        "E01240002",
		Description: "Card does not exist for the member",
		Category:    pkgerrors.CategoryInvalidCard,
		UserMessage: "The selected card is no longer available.",
	},
	"E01390002": {
		Code:        "E01390002",
		Description: "Member does not exist",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "No stored payment profile was found.",
	},
	"E01390010": {
		Code:        "E01390010",
		Description: "Member ID already registered",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "A payment profile already exists for this user.",
	},
	"E11010002": {
		Code:        "E11010002",
		Description: "Transaction already captured",
		Category:    pkgerrors.CategoryTradeState,
		UserMessage: "This payment has already been completed.",
	},
	"E11010003": {
		Code:        "E11010003",
		Description: "Transaction already voided or returned",
		Category:    pkgerrors.CategoryTradeState,
		UserMessage: "This payment has already been canceled.",
	},
	"E41170002": {
		Code:        "E41170002",
		Description: "Card token invalid or expired",
		Category:    pkgerrors.CategoryInvalidToken,
		UserMessage: "The card details could not be used. Please re-enter your card.",
	},
	"G02": {
		Code:        "G02",
		Description: "Card balance insufficient",
		IsRetriable: true,
		Category:    pkgerrors.CategoryInsufficientFunds,
		UserMessage: "Insufficient funds. Please use a different card.",
	},
	"G03": {
		Code:        "G03",
		Description: "Card limit exceeded",
		IsRetriable: true,
		Category:    pkgerrors.CategoryInsufficientFunds,
		UserMessage: "The card limit has been exceeded. Please use a different card.",
	},
	"G04": {
		Code:        "G04",
		Description: "Card reported lost or stolen",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "The card was declined. Please contact your card issuer.",
	},
	"G12": {
		Code:        "G12",
		Description: "Card not usable for this transaction",
		Category:    pkgerrors.CategoryDeclined,
		UserMessage: "The card was declined. Please use a different card.",
	},
	"G54": {
		Code:        "G54",
		Description: "Card expired",
		IsRetriable: true,
		Category:    pkgerrors.CategoryExpiredCard,
		UserMessage: "The card has expired. Please use a different card.",
	},
}

// GetErrInfoDetail resolves one ErrInfo code to its detail, falling back to
// a classification by code family when the exact code is unknown.
func GetErrInfoDetail(code string) ErrInfoDetail {
	if d, ok := errInfoDetails[code]; ok {
		return d
	}
	// Card-company results are reported as "42G" + a 6-digit reason whose
	// leading pair matches the G-codes above.
	if len(code) >= 6 && code[:3] == "42G" {
		if d, ok := errInfoDetails["G"+code[3:5]]; ok {
			d.Code = code
			return d
		}
		return ErrInfoDetail{
			Code:        code,
			Description: "Card declined by issuer",
			Category:    pkgerrors.CategoryDeclined,
			UserMessage: "The card was declined. Please use a different card.",
		}
	}
	switch {
	case len(code) >= 3 && code[:3] == "E01":
		return ErrInfoDetail{
			Code:        code,
			Description: "Request rejected by gateway",
			Category:    pkgerrors.CategoryInvalidRequest,
			UserMessage: "The payment request was rejected.",
		}
	case len(code) >= 3 && code[:3] == "E11":
		return ErrInfoDetail{
			Code:        code,
			Description: "Invalid transaction state",
			Category:    pkgerrors.CategoryTradeState,
			UserMessage: "This payment cannot be processed in its current state.",
		}
	default:
		return ErrInfoDetail{
			Code:        code,
			Description: "Gateway error",
			Category:    pkgerrors.CategorySystemError,
			UserMessage: "The payment could not be processed. Please try again later.",
		}
	}
}

// ToPaymentError converts the detail into a PaymentError, preserving the
// gateway's own wording.
func (d ErrInfoDetail) ToPaymentError(gatewayMessage string) *pkgerrors.PaymentError {
	return &pkgerrors.PaymentError{
		Code:           d.Code,
		Message:        d.UserMessage,
		GatewayMessage: gatewayMessage,
		IsRetriable:    d.IsRetriable,
		Category:       d.Category,
	}
}
