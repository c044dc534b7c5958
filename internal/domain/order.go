package domain

import "time"

// OrderKind distinguishes limit orders from market orders.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "limit"
	OrderKindMarket OrderKind = "market"
)

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderStatus represents the lifecycle state of an order.
//
// An order is active from creation until it is fully filled or explicitly
// cancelled. Filled and cancelled are terminal states.
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order represents a buy or sell instruction submitted by an account.
//
// PrevID and NextID link the order into its price level's FIFO queue while
// it rests on the book; 0 means no neighbor. They are meaningful only for
// active limit orders that finished intake with unfilled quantity.
type Order struct {
	ID          uint64
	Kind        OrderKind
	AccountID   string
	Side        OrderSide
	Symbol      string
	Price       int64 // cents, 0 for market orders
	Quantity    int64
	Filled      int64
	Status      OrderStatus
	CreatedAt   time.Time
	CancelledAt *time.Time
	PrevID      uint64
	NextID      uint64
	Trades      []*Trade
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.Filled
}

// Validate checks the quantity/price preconditions for order creation.
// Violations surface as ValidationError before any state is touched.
func (o *Order) Validate() error {
	if o.Quantity <= 0 {
		return &ValidationError{Message: "quantity must be a positive integer"}
	}
	if o.Kind == OrderKindLimit && o.Price <= 0 {
		return &ValidationError{Message: "price must be a positive integer for limit orders"}
	}
	return nil
}

// AveragePrice computes the volume-weighted average execution price
// as sum(trade.price × trade.quantity) / filled using integer
// arithmetic. Returns (0, false) when no quantity has been filled.
func (o *Order) AveragePrice() (int64, bool) {
	if len(o.Trades) == 0 || o.Filled == 0 {
		return 0, false
	}
	var total int64
	for _, t := range o.Trades {
		total += t.Price * t.Quantity
	}
	return total / o.Filled, true
}
