package domain

import (
	"sync"
	"time"
)

// Holding represents an account's position in a single symbol's base asset.
type Holding struct {
	Quantity         int64
	ReservedQuantity int64
}

// Account represents a participant with custody balances on the exchange.
// Cash is the quote currency in cents; holdings are base units per symbol.
type Account struct {
	AccountID    string
	CashBalance  int64
	ReservedCash int64 // cash locked by active buy orders
	Holdings     map[string]*Holding
	CreatedAt    time.Time
	Mu           sync.Mutex // per-account lock for balance mutations
}

// AvailableCash returns the account's unreserved cash balance.
func (a *Account) AvailableCash() int64 {
	return a.CashBalance - a.ReservedCash
}

// AvailableQuantity returns the unreserved quantity for the given symbol,
// or 0 if the account holds none of it.
func (a *Account) AvailableQuantity(symbol string) int64 {
	h, ok := a.Holdings[symbol]
	if !ok {
		return 0
	}
	return h.Quantity - h.ReservedQuantity
}

// Holding returns the holding for symbol, creating an empty one if absent.
// Callers must hold Mu.
func (a *Account) Holding(symbol string) *Holding {
	h, ok := a.Holdings[symbol]
	if !ok {
		h = &Holding{}
		a.Holdings[symbol] = h
	}
	return h
}
