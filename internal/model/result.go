package model

// ErrKind is the machine-readable class of an expected validation failure.
// These are value results, not Go errors: they flow back to the client and
// never corrupt engine state.
type ErrKind string

const (
	ErrInvalidQuantity      ErrKind = "INVALID_QUANTITY"
	ErrInvalidRequest       ErrKind = "INVALID_REQUEST"
	ErrUnknownSymbol        ErrKind = "UNKNOWN_SYMBOL"
	ErrUnknownPlayer        ErrKind = "UNKNOWN_PLAYER"
	ErrAssetLocked          ErrKind = "ASSET_LOCKED"
	ErrInsufficientFunds    ErrKind = "INSUFFICIENT_FUNDS"
	ErrInsufficientHoldings ErrKind = "INSUFFICIENT_HOLDINGS"
	ErrRateLimited          ErrKind = "RATE_LIMITED"
	ErrLimitExceeded        ErrKind = "LIMIT_EXCEEDED"
	ErrUnauthorized         ErrKind = "UNAUTHORIZED"
	ErrNotRunning           ErrKind = "NOT_RUNNING"
)

// ActionResult is the outcome of a mutating player or admin action.
type ActionResult struct {
	OK      bool    `json:"ok"`
	Kind    ErrKind `json:"kind,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Ok returns a successful result.
func Ok() ActionResult {
	return ActionResult{OK: true}
}

// Fail returns a failed result with the given kind and message.
func Fail(kind ErrKind, message string) ActionResult {
	return ActionResult{Kind: kind, Message: message}
}
