package domain

import "strings"

// Cart is the slice of the host commerce system's cart/order record this
// service consumes. Total is in integral currency units (yen).
type Cart struct {
	ID         string `json:"id"`
	Total      int64  `json:"total"`
	CustomerID string `json:"customer_id"`
}

// PaymentSession is the local representation of one gateway transaction,
// scoped to one cart. It is an immutable value: every lifecycle operation
// takes a session in and returns a new one, nothing mutates in place. The
// host stores it as opaque blob state on its cart record.
type PaymentSession struct {
	OrderID    string `json:"order_id"`
	AccessID   string `json:"access_id,omitempty"`
	AccessPass string `json:"access_pass,omitempty"`
	Amount     int64  `json:"amount"`
	MemberID   string `json:"member_id,omitempty"`
}

// Entered reports whether EntryTran has been issued for this session.
// The access pair is set together or not at all; its absence is the
// sentinel for a zero-amount session that never contacted the gateway.
func (s PaymentSession) Entered() bool {
	return s.AccessID != "" && s.AccessPass != ""
}

// OrderIDFromCart derives the gateway order reference from a cart ID by
// stripping the local-only prefix, if any.
func OrderIDFromCart(cartID, localPrefix string) string {
	if localPrefix == "" {
		return cartID
	}
	return strings.TrimPrefix(cartID, localPrefix)
}
