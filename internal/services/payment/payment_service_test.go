package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	svcports "github.com/cartloom/gmo-payment-service/internal/services/ports"
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Entry(ctx context.Context, orderID string, amount int64) (*ports.EntryResult, error) {
	args := m.Called(ctx, orderID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.EntryResult), args.Error(1)
}

func (m *MockGateway) Execute(ctx context.Context, req *ports.ExecuteRequest) (*ports.ExecuteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ExecuteResult), args.Error(1)
}

func (m *MockGateway) Change(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error {
	args := m.Called(ctx, accessID, accessPass, jobCd, amount)
	return args.Error(0)
}

func (m *MockGateway) Alter(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error {
	args := m.Called(ctx, accessID, accessPass, jobCd, amount)
	return args.Error(0)
}

func (m *MockGateway) SearchTrade(ctx context.Context, orderID string) (*ports.TradeInfo, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TradeInfo), args.Error(1)
}

func (m *MockGateway) SaveMember(ctx context.Context, memberID, name string) error {
	args := m.Called(ctx, memberID, name)
	return args.Error(0)
}

func (m *MockGateway) SaveCard(ctx context.Context, memberID, token string) (int, error) {
	args := m.Called(ctx, memberID, token)
	return args.Int(0), args.Error(1)
}

func (m *MockGateway) DeleteCard(ctx context.Context, memberID string, cardSeq int) error {
	args := m.Called(ctx, memberID, cardSeq)
	return args.Error(0)
}

func (m *MockGateway) SearchCard(ctx context.Context, memberID string) ([]domain.Card, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

type MockVault struct {
	mock.Mock
}

func (m *MockVault) RetrieveMember(ctx context.Context, userID string) (*domain.CardVaultRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardVaultRecord), args.Error(1)
}

func (m *MockVault) SaveMember(ctx context.Context, userID, token, displayName string) (domain.VaultUpsert, error) {
	args := m.Called(ctx, userID, token, displayName)
	return args.Get(0).(domain.VaultUpsert), args.Error(1)
}

func (m *MockVault) EnsureMember(ctx context.Context, userID string) (domain.VaultUpsert, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.VaultUpsert), args.Error(1)
}

func (m *MockVault) ShowCard(ctx context.Context, userID string) []domain.Card {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Card)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Debug(string, ...ports.Field) {}

func newTestService() (*Service, *MockGateway, *MockVault) {
	gateway := new(MockGateway)
	vault := new(MockVault)
	svc := NewService(gateway, vault, Config{OrderIDPrefix: "dev-"}, nopLogger{})
	return svc, gateway, vault
}

func enteredSession() domain.PaymentSession {
	return domain.PaymentSession{
		OrderID:    "cart-1",
		AccessID:   "acc",
		AccessPass: "pass",
		Amount:     1500,
		MemberID:   "member-1",
	}
}

func tradeInfo(status domain.TradeStatus, amount int64) *ports.TradeInfo {
	return &ports.TradeInfo{
		OrderID:    "cart-1",
		Status:     status,
		Amount:     amount,
		AccessID:   "acc",
		AccessPass: "pass",
	}
}

func transportErr() error {
	return &pkgerrors.PaymentError{
		Code:        "NETWORK_ERROR",
		Message:     "connection refused",
		IsRetriable: true,
		Category:    pkgerrors.CategoryNetworkError,
	}
}

func TestCreatePayment_ZeroTotalSkipsGateway(t *testing.T) {
	svc, gateway, vault := newTestService()

	session, err := svc.CreatePayment(context.Background(), domain.Cart{ID: "dev-cart-1", Total: 0, CustomerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "cart-1", session.OrderID)
	assert.False(t, session.Entered())
	assert.Zero(t, session.Amount)

	gateway.AssertNotCalled(t, "Entry", mock.Anything, mock.Anything, mock.Anything)
	vault.AssertNotCalled(t, "EnsureMember", mock.Anything, mock.Anything)
}

func TestCreatePayment_OpensTransactionAndProvisionsMember(t *testing.T) {
	svc, gateway, vault := newTestService()
	vault.On("EnsureMember", mock.Anything, "user-1").
		Return(domain.VaultUpsert{Outcome: domain.VaultCreated, MemberID: "member-1"}, nil)
	gateway.On("Entry", mock.Anything, "cart-1", int64(1500)).
		Return(&ports.EntryResult{AccessID: "acc", AccessPass: "pass"}, nil)

	session, err := svc.CreatePayment(context.Background(), domain.Cart{ID: "dev-cart-1", Total: 1500, CustomerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "cart-1", session.OrderID)
	assert.Equal(t, "acc", session.AccessID)
	assert.Equal(t, "pass", session.AccessPass)
	assert.Equal(t, int64(1500), session.Amount)
	assert.Equal(t, "member-1", session.MemberID)
}

func TestCreatePayment_MemberBootstrapFailureLeavesNoEntry(t *testing.T) {
	svc, gateway, vault := newTestService()
	vault.On("EnsureMember", mock.Anything, "user-1").
		Return(domain.VaultUpsert{}, errors.New("gateway down"))

	_, err := svc.CreatePayment(context.Background(), domain.Cart{ID: "cart-1", Total: 1500, CustomerID: "user-1"})
	require.Error(t, err)
	gateway.AssertNotCalled(t, "Entry", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePayment_NegativeTotalRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreatePayment(context.Background(), domain.Cart{ID: "cart-1", Total: -100})
	assert.True(t, domain.IsValidationError(err))
}

func TestGetStatus_ZeroAmountSessionIsAuthorized(t *testing.T) {
	svc, gateway, _ := newTestService()

	status, err := svc.GetStatus(context.Background(), domain.PaymentSession{OrderID: "cart-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)
	gateway.AssertNotCalled(t, "SearchTrade", mock.Anything, mock.Anything)
}

func TestGetStatus_MissingAccessPairIsProgrammerError(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetStatus(context.Background(), domain.PaymentSession{OrderID: "cart-1", Amount: 1500})
	assert.ErrorIs(t, err, domain.ErrSessionNoAccess)
}

func TestGetStatus_MapsGatewayStatus(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeCapture, 1500), nil)

	status, err := svc.GetStatus(context.Background(), enteredSession())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)
}

func TestGetStatus_RetriesOnceOnTransportError(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(nil, transportErr()).Once()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil).Once()

	status, err := svc.GetStatus(context.Background(), enteredSession())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)
	gateway.AssertNumberOfCalls(t, "SearchTrade", 2)
}

func TestGetStatus_DoesNotRetryGatewayRejection(t *testing.T) {
	svc, gateway, _ := newTestService()
	rejection := &pkgerrors.PaymentError{Code: "E01", Category: pkgerrors.CategoryInvalidRequest}
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(nil, rejection)

	_, err := svc.GetStatus(context.Background(), enteredSession())
	require.Error(t, err)
	gateway.AssertNumberOfCalls(t, "SearchTrade", 1)
}

func TestAuthorizePaymentNew_ZeroAmountShortCircuits(t *testing.T) {
	svc, gateway, _ := newTestService()

	status, err := svc.AuthorizePaymentNew(context.Background(), domain.PaymentSession{OrderID: "cart-1"}, svcports.AuthorizeContext{Type: svcports.AuthorizeByToken, Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)
	gateway.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "SearchTrade", mock.Anything, mock.Anything)
}

func TestAuthorizePaymentNew_AlreadyAuthorizedIsIdempotent(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil)

	status, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: svcports.AuthorizeByToken, Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)

	gateway.AssertNotCalled(t, "SaveCard", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestAuthorizePaymentNew_TokenPathSavesCardThenExecutes(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil).Once()
	gateway.On("SaveCard", mock.Anything, "member-1", "tok_1").Return(2, nil)
	gateway.On("Execute", mock.Anything, &ports.ExecuteRequest{
		AccessID:   "acc",
		AccessPass: "pass",
		OrderID:    "cart-1",
		MemberID:   "member-1",
		CardSeq:    2,
	}).Return(&ports.ExecuteResult{Approve: "0123456"}, nil)
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil).Once()

	status, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: svcports.AuthorizeByToken, Token: "tok_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, status)

	gateway.AssertExpectations(t)
	gateway.AssertNotCalled(t, "Change", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorizePaymentNew_MemberPathExecutesVaultedCard(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil).Once()
	gateway.On("Execute", mock.Anything, &ports.ExecuteRequest{
		AccessID:   "acc",
		AccessPass: "pass",
		OrderID:    "cart-1",
		MemberID:   "member-7",
		CardSeq:    0,
	}).Return(&ports.ExecuteResult{}, nil)
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil).Once()

	_, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: svcports.AuthorizeByMember, MemberID: "member-7", CardSeq: 0})
	require.NoError(t, err)

	gateway.AssertNotCalled(t, "SaveCard", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorizePaymentNew_ReconcilesAmountMismatch(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil).Once()
	gateway.On("Execute", mock.Anything, mock.Anything).Return(&ports.ExecuteResult{}, nil)
	// The gateway authorized a stale amount.
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1200), nil).Once()
	gateway.On("Change", mock.Anything, "acc", "pass", domain.JobAuth, int64(1500)).Return(nil)

	_, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: svcports.AuthorizeByMember, MemberID: "member-1"})
	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestAuthorizePaymentNew_DeclinePropagates(t *testing.T) {
	svc, gateway, _ := newTestService()
	decline := &pkgerrors.PaymentError{Code: "G02", Category: pkgerrors.CategoryInsufficientFunds}
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil)
	gateway.On("Execute", mock.Anything, mock.Anything).Return(nil, decline)

	_, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: svcports.AuthorizeByMember, MemberID: "member-1"})
	require.Error(t, err)
	assert.Equal(t, decline, pkgerrors.AsPaymentError(err))
}

func TestAuthorizePaymentNew_UnknownTypeRejected(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil)

	_, err := svc.AuthorizePaymentNew(context.Background(), enteredSession(), svcports.AuthorizeContext{Type: "magic"})
	assert.True(t, domain.IsValidationError(err))
}

func TestUpdatePayment_UnchangedTotalIsNoOp(t *testing.T) {
	svc, gateway, _ := newTestService()
	session := enteredSession()

	updated, err := svc.UpdatePayment(context.Background(), session, domain.Cart{ID: "cart-1", Total: 1500})
	require.NoError(t, err)
	assert.Equal(t, session, updated)
	gateway.AssertNotCalled(t, "SearchTrade", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "Change", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePayment_NeverEnteredReplacesSession(t *testing.T) {
	svc, gateway, vault := newTestService()
	vault.On("EnsureMember", mock.Anything, "user-1").
		Return(domain.VaultUpsert{Outcome: domain.VaultExisting, MemberID: "member-1"}, nil)
	gateway.On("Entry", mock.Anything, "cart-1", int64(2000)).
		Return(&ports.EntryResult{AccessID: "acc2", AccessPass: "pass2"}, nil)

	session := domain.PaymentSession{OrderID: "cart-1"}
	updated, err := svc.UpdatePayment(context.Background(), session, domain.Cart{ID: "dev-cart-1", Total: 2000, CustomerID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "acc2", updated.AccessID)
	assert.Equal(t, int64(2000), updated.Amount)
}

func TestUpdatePayment_ZeroTotalUpdatesLocally(t *testing.T) {
	svc, gateway, _ := newTestService()

	updated, err := svc.UpdatePayment(context.Background(), enteredSession(), domain.Cart{ID: "cart-1", Total: 0})
	require.NoError(t, err)
	assert.Zero(t, updated.Amount)
	gateway.AssertNotCalled(t, "Change", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePayment_PendingSessionUpdatesLocally(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil)

	updated, err := svc.UpdatePayment(context.Background(), enteredSession(), domain.Cart{ID: "cart-1", Total: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), updated.Amount)
	gateway.AssertNotCalled(t, "Change", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePayment_AuthorizedSessionIssuesChange(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil)
	gateway.On("Change", mock.Anything, "acc", "pass", domain.JobAuth, int64(2000)).Return(nil)

	updated, err := svc.UpdatePayment(context.Background(), enteredSession(), domain.Cart{ID: "cart-1", Total: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), updated.Amount)
	gateway.AssertExpectations(t)
}

func TestUpdatePayment_CanceledSessionRejected(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeVoid, 1500), nil)

	_, err := svc.UpdatePayment(context.Background(), enteredSession(), domain.Cart{ID: "cart-1", Total: 2000})
	assert.ErrorIs(t, err, domain.ErrSessionInvalidState)
}

func TestCapturePayment_AltersToSales(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("Alter", mock.Anything, "acc", "pass", domain.JobSales, int64(1500)).Return(nil)

	err := svc.CapturePayment(context.Background(), enteredSession())
	require.NoError(t, err)
	gateway.AssertExpectations(t)
	// No local status pre-check: double capture is the gateway's call.
	gateway.AssertNotCalled(t, "SearchTrade", mock.Anything, mock.Anything)
}

func TestCapturePayment_ZeroAmountSessionIsNoOp(t *testing.T) {
	svc, gateway, _ := newTestService()

	err := svc.CapturePayment(context.Background(), domain.PaymentSession{OrderID: "cart-1"})
	require.NoError(t, err)
	gateway.AssertNotCalled(t, "Alter", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCapturePayment_GatewayRejectionSurfaces(t *testing.T) {
	svc, gateway, _ := newTestService()
	rejection := &pkgerrors.PaymentError{Code: "E11010002", Category: pkgerrors.CategoryTradeState}
	gateway.On("Alter", mock.Anything, "acc", "pass", domain.JobSales, int64(1500)).Return(rejection)

	err := svc.CapturePayment(context.Background(), enteredSession())
	require.Error(t, err)
	assert.Equal(t, rejection, pkgerrors.AsPaymentError(err))
}

func TestCancelPayment_NeverEnteredReturnsImmediately(t *testing.T) {
	svc, gateway, _ := newTestService()

	err := svc.CancelPayment(context.Background(), domain.PaymentSession{OrderID: "cart-1"})
	require.NoError(t, err)
	gateway.AssertNotCalled(t, "SearchTrade", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "Alter", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPayment_AlreadyCanceledIsNoOp(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeCancel, 1500), nil)

	err := svc.CancelPayment(context.Background(), enteredSession())
	require.NoError(t, err)
	gateway.AssertNotCalled(t, "Alter", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPayment_PendingIsNoOp(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeUnprocessed, 0), nil)

	err := svc.CancelPayment(context.Background(), enteredSession())
	require.NoError(t, err)
	gateway.AssertNotCalled(t, "Alter", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPayment_AuthorizedIsVoided(t *testing.T) {
	svc, gateway, _ := newTestService()
	gateway.On("SearchTrade", mock.Anything, "cart-1").Return(tradeInfo(domain.TradeAuth, 1500), nil)
	gateway.On("Alter", mock.Anything, "acc", "pass", domain.JobVoid, int64(0)).Return(nil)

	err := svc.CancelPayment(context.Background(), enteredSession())
	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestRefundPayment_NotSupported(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.RefundPayment(context.Background(), enteredSession())
	assert.ErrorIs(t, err, domain.ErrRefundNotSupported)
}
