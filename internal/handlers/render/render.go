package render

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
)

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable,omitempty"`
}

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Error maps a service error to an HTTP status and JSON body. Gateway
// rejections keep their code and message: the gateway's wording often has to
// reach the end customer.
func Error(w http.ResponseWriter, err error) {
	var pe *pkgerrors.PaymentError
	if errors.As(err, &pe) {
		status := http.StatusPaymentRequired
		if pe.Category == pkgerrors.CategoryNetworkError || pe.Category == pkgerrors.CategorySystemError {
			status = http.StatusBadGateway
		}
		JSON(w, status, ErrorResponse{
			Code:      pe.Code,
			Message:   pe.Message,
			Retriable: pe.IsRetriable,
		})
		return
	}

	var ve *pkgerrors.ValidationError
	if errors.As(err, &ve) {
		JSON(w, http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: ve.Error()})
		return
	}

	code := domain.GetErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case code == domain.ErrorCodeVaultNotFound:
		status = http.StatusNotFound
	case code == domain.ErrorCodeSessionNoAccess, code == domain.ErrorCodeSessionInvalidState:
		status = http.StatusConflict
	case code == domain.ErrorCodeRefundNotSupported:
		status = http.StatusNotImplemented
	}

	if code == "" {
		code = domain.ErrorCodeInternalError
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal error"
	}
	JSON(w, status, ErrorResponse{Code: string(code), Message: message})
}
