package domain

// TradeStatus is the transaction status as reported by the GMO gateway.
// It is the authoritative remote state; this service never stores a copy
// and always re-queries SearchTrade when status is needed.
type TradeStatus string

const (
	TradeUnprocessed   TradeStatus = "UNPROCESSED"
	TradeAuthenticated TradeStatus = "AUTHENTICATED"
	TradeAuth          TradeStatus = "AUTH"
	TradeCapture       TradeStatus = "CAPTURE"
	TradeSales         TradeStatus = "SALES"
	TradeSauth         TradeStatus = "SAUTH"
	TradeCheck         TradeStatus = "CHECK"
	TradeVoid          TradeStatus = "VOID"
	TradeCancel        TradeStatus = "CANCEL"
	TradeReturn        TradeStatus = "RETURN"
	TradeReturnX       TradeStatus = "RETURNX"
)

// SessionStatus is the lifecycle state exposed to the host commerce system.
type SessionStatus string

const (
	StatusPending    SessionStatus = "PENDING"
	StatusAuthorized SessionStatus = "AUTHORIZED"
	StatusCanceled   SessionStatus = "CANCELED"
)

// JobCd selects the transaction's intended next state on the gateway side.
type JobCd string

const (
	JobAuth  JobCd = "AUTH"
	JobSales JobCd = "SALES"
	JobVoid  JobCd = "VOID"
)

// MapTradeStatus translates a gateway trade status into a session status.
// Unknown statuses map to PENDING: a charge is never reported as succeeded
// on input this service does not recognize.
func MapTradeStatus(status TradeStatus) SessionStatus {
	switch status {
	case TradeUnprocessed, TradeAuthenticated:
		return StatusPending
	case TradeAuth, TradeCapture, TradeSales, TradeSauth, TradeCheck:
		return StatusAuthorized
	case TradeVoid, TradeCancel, TradeReturn, TradeReturnX:
		return StatusCanceled
	default:
		return StatusPending
	}
}
