package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
)

type MockVaultService struct {
	mock.Mock
}

func (m *MockVaultService) RetrieveMember(ctx context.Context, userID string) (*domain.CardVaultRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardVaultRecord), args.Error(1)
}

func (m *MockVaultService) SaveMember(ctx context.Context, userID, token, displayName string) (domain.VaultUpsert, error) {
	args := m.Called(ctx, userID, token, displayName)
	return args.Get(0).(domain.VaultUpsert), args.Error(1)
}

func (m *MockVaultService) EnsureMember(ctx context.Context, userID string) (domain.VaultUpsert, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.VaultUpsert), args.Error(1)
}

func (m *MockVaultService) ShowCard(ctx context.Context, userID string) []domain.Card {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Card)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Debug(string, ...ports.Field) {}

func setupHandlerTest() (*MockVaultService, *mux.Router) {
	service := new(MockVaultService)
	handler := NewHandler(service, nopLogger{})
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return service, router
}

func TestSaveCard_NewMemberReturns201(t *testing.T) {
	service, router := setupHandlerTest()
	service.On("SaveMember", mock.Anything, "user-1", "tok_1", "Taro").
		Return(domain.VaultUpsert{Outcome: domain.VaultCreated, MemberID: "m1"}, nil)

	body, _ := json.Marshal(saveCardRequest{Token: "tok_1", DisplayName: "Taro"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cards/user-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp saveCardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.VaultCreated, resp.Outcome)
	assert.Equal(t, "m1", resp.MemberID)
}

func TestSaveCard_ReplaceReturns200(t *testing.T) {
	service, router := setupHandlerTest()
	service.On("SaveMember", mock.Anything, "user-1", "tok_2", "").
		Return(domain.VaultUpsert{Outcome: domain.VaultExisting, MemberID: "m1"}, nil)

	body, _ := json.Marshal(saveCardRequest{Token: "tok_2"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cards/user-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveCard_InvalidTokenMapsTo402(t *testing.T) {
	service, router := setupHandlerTest()
	rejection := &pkgerrors.PaymentError{
		Code:     "E41170002",
		Message:  "The card details could not be used. Please re-enter your card.",
		Category: pkgerrors.CategoryInvalidToken,
	}
	service.On("SaveMember", mock.Anything, "user-1", "tok_bad", "").
		Return(domain.VaultUpsert{}, rejection)

	body, _ := json.Marshal(saveCardRequest{Token: "tok_bad"})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cards/user-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "E41170002")
}

func TestListCards_AlwaysOK(t *testing.T) {
	service, router := setupHandlerTest()
	service.On("ShowCard", mock.Anything, "user-1").Return([]domain.Card{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/user-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listCardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Cards)
	assert.Empty(t, resp.Cards)
}

func TestListCards_ReturnsCards(t *testing.T) {
	service, router := setupHandlerTest()
	service.On("ShowCard", mock.Anything, "user-1").Return([]domain.Card{
		{CardSeq: 0, CardNo: "************4242", Expire: "2711"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/user-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listCardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "************4242", resp.Cards[0].CardNo)
}
