package payment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	"github.com/cartloom/gmo-payment-service/internal/handlers/render"
	svcports "github.com/cartloom/gmo-payment-service/internal/services/ports"
)

// Handler exposes the payment session lifecycle over HTTP. The session value
// round-trips through the caller: the host commerce system stores it on its
// cart record and sends it back with every request.
type Handler struct {
	service svcports.PaymentSessionService
	logger  ports.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(service svcports.PaymentSessionService, logger ports.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes attaches the payment routes to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/payments", h.CreatePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/status", h.GetStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/authorize", h.AuthorizePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/update", h.UpdatePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/capture", h.CapturePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/cancel", h.CancelPayment).Methods(http.MethodPost)
}

type createRequest struct {
	Cart domain.Cart `json:"cart"`
}

type sessionRequest struct {
	Session domain.PaymentSession `json:"session"`
}

type authorizeRequest struct {
	Session  domain.PaymentSession `json:"session"`
	Type     string                `json:"type"`
	Token    string                `json:"token,omitempty"`
	MemberID string                `json:"member_id,omitempty"`
	CardSeq  int                   `json:"card_seq,omitempty"`
}

type updateRequest struct {
	Session domain.PaymentSession `json:"session"`
	Cart    domain.Cart           `json:"cart"`
}

type sessionResponse struct {
	Session domain.PaymentSession `json:"session"`
}

type statusResponse struct {
	Status domain.SessionStatus `json:"status"`
}

// CreatePayment opens a payment session for a cart.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	session, err := h.service.CreatePayment(r.Context(), req.Cart)
	if err != nil {
		h.logger.Error("Create payment failed", ports.String("cart_id", req.Cart.ID), ports.Err(err))
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, sessionResponse{Session: session})
}

// GetStatus returns the session's current mapped status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	status, err := h.service.GetStatus(r.Context(), req.Session)
	if err != nil {
		h.logger.Error("Status query failed", ports.String("order_id", req.Session.OrderID), ports.Err(err))
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, statusResponse{Status: status})
}

// AuthorizePayment executes the charge with a one-time token or a vaulted
// card.
func (h *Handler) AuthorizePayment(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	status, err := h.service.AuthorizePaymentNew(r.Context(), req.Session, svcports.AuthorizeContext{
		Type:     svcports.AuthorizeType(req.Type),
		Token:    req.Token,
		MemberID: req.MemberID,
		CardSeq:  req.CardSeq,
	})
	if err != nil {
		h.logger.Error("Authorization failed", ports.String("order_id", req.Session.OrderID), ports.Err(err))
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, statusResponse{Status: status})
}

// UpdatePayment reconciles the session with a changed cart total and returns
// the replacement session value.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	session, err := h.service.UpdatePayment(r.Context(), req.Session, req.Cart)
	if err != nil {
		h.logger.Error("Update payment failed", ports.String("order_id", req.Session.OrderID), ports.Err(err))
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, sessionResponse{Session: session})
}

// CapturePayment settles an authorized transaction.
func (h *Handler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	if err := h.service.CapturePayment(r.Context(), req.Session); err != nil {
		h.logger.Error("Capture failed", ports.String("order_id", req.Session.OrderID), ports.Err(err))
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CancelPayment voids the transaction.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	if err := h.service.CancelPayment(r.Context(), req.Session); err != nil {
		h.logger.Error("Cancel failed", ports.String("order_id", req.Session.OrderID), ports.Err(err))
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
