package payment

import (
	"context"
	"fmt"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	svcports "github.com/cartloom/gmo-payment-service/internal/services/ports"
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
)

// Config contains payment session service configuration
type Config struct {
	// OrderIDPrefix is the local-only prefix stripped from cart IDs before
	// they are used as gateway order references.
	OrderIDPrefix string
}

// Service drives the payment session state machine. One gateway transaction
// exists per cart; the session value is the caller's handle to it and rides
// inside the host cart record.
type Service struct {
	gateway ports.PaymentGateway
	vault   svcports.CardVaultService
	config  Config
	logger  ports.Logger
	locks   *orderLocks
}

// NewService creates a new payment session service.
func NewService(gateway ports.PaymentGateway, vault svcports.CardVaultService, config Config, logger ports.Logger) *Service {
	return &Service{
		gateway: gateway,
		vault:   vault,
		config:  config,
		logger:  logger,
		locks:   newOrderLocks(),
	}
}

// CreatePayment opens a gateway transaction for the cart and provisions a
// gateway member for its customer. Zero-total carts never contact the
// gateway: the returned session carries no access pair, which is the sentinel
// for "nothing to charge".
func (s *Service) CreatePayment(ctx context.Context, cart domain.Cart) (domain.PaymentSession, error) {
	orderID := domain.OrderIDFromCart(cart.ID, s.config.OrderIDPrefix)
	release := s.locks.acquire(orderID)
	defer release()

	return s.createLocked(ctx, cart, orderID)
}

func (s *Service) createLocked(ctx context.Context, cart domain.Cart, orderID string) (domain.PaymentSession, error) {
	if cart.ID == "" {
		return domain.PaymentSession{}, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "cart ID is required")
	}
	if cart.Total < 0 {
		return domain.PaymentSession{}, domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "cart total must not be negative")
	}

	if cart.Total == 0 {
		s.logger.Info("Zero-total cart; gateway not contacted", ports.String("order_id", orderID))
		return domain.PaymentSession{OrderID: orderID}, nil
	}

	// Member bootstrap happens before entry: if it fails, no transaction is
	// opened and the caller can retry without hitting a double-entry
	// rejection.
	member, err := s.vault.EnsureMember(ctx, cart.CustomerID)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("failed to provision gateway member: %w", err)
	}

	entry, err := s.gateway.Entry(ctx, orderID, cart.Total)
	if err != nil {
		return domain.PaymentSession{}, err
	}

	s.logger.Info("Payment session created",
		ports.String("order_id", orderID),
		ports.Int64("amount", cart.Total),
		ports.String("member_id", member.MemberID),
	)

	return domain.PaymentSession{
		OrderID:    orderID,
		AccessID:   entry.AccessID,
		AccessPass: entry.AccessPass,
		Amount:     cart.Total,
		MemberID:   member.MemberID,
	}, nil
}

// GetStatus re-queries the gateway for the transaction's current state and
// maps it to the internal status. Never cached.
func (s *Service) GetStatus(ctx context.Context, session domain.PaymentSession) (domain.SessionStatus, error) {
	if !session.Entered() {
		if session.Amount == 0 {
			return domain.StatusAuthorized, nil
		}
		return "", domain.ErrSessionNoAccess
	}

	info, err := s.searchTrade(ctx, session.OrderID)
	if err != nil {
		return "", err
	}
	return domain.MapTradeStatus(info.Status), nil
}

// AuthorizePayment confirms a charge that was already executed, returning the
// current mapped status without mutating anything.
func (s *Service) AuthorizePayment(ctx context.Context, session domain.PaymentSession) (domain.SessionStatus, error) {
	if session.Amount == 0 {
		return domain.StatusAuthorized, nil
	}
	return s.GetStatus(ctx, session)
}

// AuthorizePaymentNew executes the charge against a card. A session that is
// already AUTHORIZED returns as-is without touching the gateway, so retrying
// a double-submit cannot double-charge. After the charge, the gateway's
// reported amount is reconciled against the session's intended amount.
func (s *Service) AuthorizePaymentNew(ctx context.Context, session domain.PaymentSession, auth svcports.AuthorizeContext) (domain.SessionStatus, error) {
	if session.Amount == 0 {
		return domain.StatusAuthorized, nil
	}
	if !session.Entered() {
		return "", domain.ErrSessionNoAccess
	}

	release := s.locks.acquire(session.OrderID)
	defer release()

	info, err := s.searchTrade(ctx, session.OrderID)
	if err != nil {
		return "", err
	}
	if status := domain.MapTradeStatus(info.Status); status == domain.StatusAuthorized {
		s.logger.Info("Session already authorized; skipping charge", ports.String("order_id", session.OrderID))
		return status, nil
	}

	memberID, cardSeq, err := s.resolveCard(ctx, session, auth)
	if err != nil {
		return "", err
	}

	if _, err := s.gateway.Execute(ctx, &ports.ExecuteRequest{
		AccessID:   session.AccessID,
		AccessPass: session.AccessPass,
		OrderID:    session.OrderID,
		MemberID:   memberID,
		CardSeq:    cardSeq,
	}); err != nil {
		// The gateway may have partially committed before a late failure;
		// callers must re-query status rather than assume nothing happened.
		return "", err
	}

	info, err = s.searchTrade(ctx, session.OrderID)
	if err != nil {
		return "", err
	}

	if session.Amount > 0 && info.Amount != session.Amount {
		s.logger.Warn("Authorized amount differs from intended; reconciling",
			ports.String("order_id", session.OrderID),
			ports.Int64("gateway_amount", info.Amount),
			ports.Int64("intended_amount", session.Amount),
		)
		if err := s.gateway.Change(ctx, session.AccessID, session.AccessPass, domain.JobAuth, session.Amount); err != nil {
			return "", err
		}
	}

	s.logger.Info("Payment authorized",
		ports.String("order_id", session.OrderID),
		ports.Int64("amount", session.Amount),
	)
	return domain.MapTradeStatus(info.Status), nil
}

// resolveCard picks the member and card slot to charge based on the
// authorization context.
func (s *Service) resolveCard(ctx context.Context, session domain.PaymentSession, auth svcports.AuthorizeContext) (string, int, error) {
	switch auth.Type {
	case svcports.AuthorizeByToken:
		if auth.Token == "" {
			return "", 0, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "card token is required")
		}
		if session.MemberID == "" {
			return "", 0, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "session has no gateway member for token charge")
		}
		cardSeq, err := s.gateway.SaveCard(ctx, session.MemberID, auth.Token)
		if err != nil {
			return "", 0, err
		}
		return session.MemberID, cardSeq, nil

	case svcports.AuthorizeByMember:
		if auth.MemberID == "" {
			return "", 0, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "member ID is required")
		}
		return auth.MemberID, auth.CardSeq, nil

	default:
		return "", 0, domain.NewDomainError(domain.ErrorCodeValidationFailed, fmt.Sprintf("unknown authorization type %q", auth.Type))
	}
}

// UpdatePayment reconciles a cart total that changed after session creation.
// Gateway calls happen only when an authorized amount has to move; everything
// else is local bookkeeping on the session value.
func (s *Service) UpdatePayment(ctx context.Context, session domain.PaymentSession, cart domain.Cart) (domain.PaymentSession, error) {
	orderID := domain.OrderIDFromCart(cart.ID, s.config.OrderIDPrefix)
	release := s.locks.acquire(orderID)
	defer release()

	// A session that never contacted the gateway is replaced wholesale once
	// there is something to charge.
	if !session.Entered() && cart.Total != 0 {
		return s.createLocked(ctx, cart, orderID)
	}

	if cart.Total == session.Amount {
		return session, nil
	}

	if cart.Total == 0 {
		session.Amount = 0
		return session, nil
	}

	info, err := s.searchTrade(ctx, session.OrderID)
	if err != nil {
		return domain.PaymentSession{}, err
	}

	switch domain.MapTradeStatus(info.Status) {
	case domain.StatusPending:
		// Nothing committed yet; the new total rides along locally and is
		// charged when the session is authorized.
		session.Amount = cart.Total
		return session, nil

	case domain.StatusAuthorized:
		if err := s.gateway.Change(ctx, session.AccessID, session.AccessPass, domain.JobAuth, cart.Total); err != nil {
			return domain.PaymentSession{}, err
		}
		s.logger.Info("Authorized amount changed",
			ports.String("order_id", session.OrderID),
			ports.Int64("old_amount", session.Amount),
			ports.Int64("new_amount", cart.Total),
		)
		session.Amount = cart.Total
		return session, nil

	default:
		return domain.PaymentSession{}, domain.ErrSessionInvalidState
	}
}

// CapturePayment drives an authorized transaction to settlement. Double
// capture is not pre-checked locally; the gateway rejects it and the
// rejection surfaces to the caller.
func (s *Service) CapturePayment(ctx context.Context, session domain.PaymentSession) error {
	if !session.Entered() {
		if session.Amount == 0 {
			return nil
		}
		return domain.ErrSessionNoAccess
	}

	release := s.locks.acquire(session.OrderID)
	defer release()

	if err := s.gateway.Alter(ctx, session.AccessID, session.AccessPass, domain.JobSales, session.Amount); err != nil {
		return err
	}

	s.logger.Info("Payment captured",
		ports.String("order_id", session.OrderID),
		ports.Int64("amount", session.Amount),
	)
	return nil
}

// CancelPayment voids the transaction. Sessions that were never charged
// (no access pair, still PENDING, or already CANCELED) return immediately
// without a gateway mutation.
func (s *Service) CancelPayment(ctx context.Context, session domain.PaymentSession) error {
	if !session.Entered() {
		return nil
	}

	release := s.locks.acquire(session.OrderID)
	defer release()

	info, err := s.searchTrade(ctx, session.OrderID)
	if err != nil {
		return err
	}
	switch domain.MapTradeStatus(info.Status) {
	case domain.StatusCanceled, domain.StatusPending:
		return nil
	}

	if err := s.gateway.Alter(ctx, session.AccessID, session.AccessPass, domain.JobVoid, 0); err != nil {
		return err
	}

	s.logger.Info("Payment canceled", ports.String("order_id", session.OrderID))
	return nil
}

// RefundPayment is a deliberate no-op: refunds run through a manual
// back-office process, not this service.
func (s *Service) RefundPayment(ctx context.Context, session domain.PaymentSession) error {
	return domain.ErrRefundNotSupported
}

// searchTrade reads the transaction state, retrying once on a transport
// error. Only this read-only path retries; charge-mutating calls never do.
func (s *Service) searchTrade(ctx context.Context, orderID string) (*ports.TradeInfo, error) {
	info, err := s.gateway.SearchTrade(ctx, orderID)
	if err != nil && pkgerrors.IsTransportError(err) {
		s.logger.Warn("Trade search failed on transport error; retrying once",
			ports.String("order_id", orderID),
			ports.Err(err),
		)
		info, err = s.gateway.SearchTrade(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}
