package ports

import (
	"context"

	"github.com/cartloom/gmo-payment-service/internal/domain"
)

// EntryResult is the capability pair issued by EntryTran. Every subsequent
// operation on the transaction requires it.
type EntryResult struct {
	AccessID   string
	AccessPass string
}

// ExecuteRequest commits the charge against a specific stored card.
type ExecuteRequest struct {
	AccessID   string
	AccessPass string
	OrderID    string
	MemberID   string
	CardSeq    int
}

// ExecuteResult carries the gateway's approval details for an executed charge.
type ExecuteResult struct {
	Approve  string
	TranID   string
	TranDate string
	Forward  string
}

// TradeInfo is the current state of a transaction as reported by SearchTrade.
type TradeInfo struct {
	OrderID    string
	Status     domain.TradeStatus
	JobCd      string
	Amount     int64
	AccessID   string
	AccessPass string
}

// PaymentGateway is one gateway operation per call: no retries, no business
// interpretation of results. Gateway rejections and transport failures both
// propagate unchanged to the caller; retry policy belongs to the caller
// because blindly retrying a charge-mutating call risks double-authorization.
type PaymentGateway interface {
	// Entry opens a transaction for an order. The gateway rejects a second
	// Entry for the same order before completion; that error is surfaced,
	// not swallowed.
	Entry(ctx context.Context, orderID string, amount int64) (*EntryResult, error)

	// Execute commits the charge against a vaulted card.
	Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResult, error)

	// Change mutates the authorized amount of a not-yet-captured transaction.
	Change(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error

	// Alter drives a transaction to capture (SALES) or void (VOID).
	Alter(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error

	// SearchTrade is the only read path for transaction state.
	SearchTrade(ctx context.Context, orderID string) (*TradeInfo, error)

	// Card-vault primitives.
	SaveMember(ctx context.Context, memberID, name string) error
	SaveCard(ctx context.Context, memberID, token string) (cardSeq int, err error)
	DeleteCard(ctx context.Context, memberID string, cardSeq int) error
	SearchCard(ctx context.Context, memberID string) ([]domain.Card, error)
}
