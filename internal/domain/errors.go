package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountAlreadyExists = errors.New("account_already_exists")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrNotOrderOwner        = errors.New("not_order_owner")
	ErrOrderNotActive       = errors.New("order_not_active")
	ErrInsufficientBalance  = errors.New("insufficient_balance")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrSymbolNotFound       = errors.New("symbol_not_found")
	ErrWebhookNotFound      = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure. Validation
// always runs before any book or custody mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsCustodyFailure reports whether err is a failed custody effect
// (reservation or transfer). A custody failure aborts the whole operation
// with no book mutation.
func IsCustodyFailure(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrInsufficientHoldings)
}
