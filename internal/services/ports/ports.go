package ports

import (
	"context"

	"github.com/cartloom/gmo-payment-service/internal/domain"
)

// AuthorizeType selects how a charge is authorized.
type AuthorizeType string

const (
	// AuthorizeByToken charges a one-time card token issued client-side.
	AuthorizeByToken AuthorizeType = "token"

	// AuthorizeByMember charges a previously vaulted card.
	AuthorizeByMember AuthorizeType = "member"
)

// AuthorizeContext carries the card selection for AuthorizePaymentNew.
type AuthorizeContext struct {
	Type     AuthorizeType
	Token    string
	MemberID string
	CardSeq  int
}

// PaymentSessionService drives the lifecycle of one payment session per cart.
// Sessions are immutable values; every call takes one in and returns a new
// one, never mutating in place.
type PaymentSessionService interface {
	CreatePayment(ctx context.Context, cart domain.Cart) (domain.PaymentSession, error)
	GetStatus(ctx context.Context, session domain.PaymentSession) (domain.SessionStatus, error)
	AuthorizePayment(ctx context.Context, session domain.PaymentSession) (domain.SessionStatus, error)
	AuthorizePaymentNew(ctx context.Context, session domain.PaymentSession, auth AuthorizeContext) (domain.SessionStatus, error)
	UpdatePayment(ctx context.Context, session domain.PaymentSession, cart domain.Cart) (domain.PaymentSession, error)
	CapturePayment(ctx context.Context, session domain.PaymentSession) error
	CancelPayment(ctx context.Context, session domain.PaymentSession) error
	RefundPayment(ctx context.Context, session domain.PaymentSession) error
}

// CardVaultService maps local users to gateway members and manages each
// member's single stored card.
type CardVaultService interface {
	RetrieveMember(ctx context.Context, userID string) (*domain.CardVaultRecord, error)
	SaveMember(ctx context.Context, userID, token, displayName string) (domain.VaultUpsert, error)
	EnsureMember(ctx context.Context, userID string) (domain.VaultUpsert, error)

	// ShowCard never fails: on any lookup or gateway error it returns an
	// empty list, because card display must not block checkout.
	ShowCard(ctx context.Context, userID string) []domain.Card
}
