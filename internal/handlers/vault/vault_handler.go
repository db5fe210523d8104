package vault

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	"github.com/cartloom/gmo-payment-service/internal/handlers/render"
	svcports "github.com/cartloom/gmo-payment-service/internal/services/ports"
)

// Handler exposes the card vault over HTTP.
type Handler struct {
	service svcports.CardVaultService
	logger  ports.Logger
}

// NewHandler creates a new vault handler.
func NewHandler(service svcports.CardVaultService, logger ports.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes attaches the card vault routes to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/cards/{userID}", h.SaveCard).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/cards/{userID}", h.ListCards).Methods(http.MethodGet)
}

type saveCardRequest struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name,omitempty"`
}

type saveCardResponse struct {
	Outcome  domain.VaultOutcome `json:"outcome"`
	MemberID string              `json:"member_id"`
}

type listCardsResponse struct {
	Cards []domain.Card `json:"cards"`
}

// SaveCard saves or replaces the user's vaulted card.
func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req saveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, http.StatusBadRequest, render.ErrorResponse{Code: "INVALID_BODY", Message: "invalid JSON body"})
		return
	}

	result, err := h.service.SaveMember(r.Context(), userID, req.Token, req.DisplayName)
	if err != nil {
		h.logger.Error("Card save failed", ports.String("user_id", userID), ports.Err(err))
		render.Error(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == domain.VaultCreated {
		status = http.StatusCreated
	}
	render.JSON(w, status, saveCardResponse{Outcome: result.Outcome, MemberID: result.MemberID})
}

// ListCards returns the user's vaulted cards. Always 200: a gateway failure
// or missing vault record yields an empty list, never an error.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	cards := h.service.ShowCard(r.Context(), userID)
	render.JSON(w, http.StatusOK, listCardsResponse{Cards: cards})
}
