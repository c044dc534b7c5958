package domain

import "time"

// Trade represents a matched execution between a buy and a sell order.
// Trade records are immutable once written to the ledger.
type Trade struct {
	ID          uint64
	Symbol      string
	BuyOrderID  uint64
	SellOrderID uint64
	BuyerID     string
	SellerID    string
	Price       int64 // cents
	Quantity    int64
	ExecutedAt  time.Time
}

// OrderID returns the trade's order id on the given side.
func (t *Trade) OrderID(side OrderSide) uint64 {
	if side == OrderSideBuy {
		return t.BuyOrderID
	}
	return t.SellOrderID
}
