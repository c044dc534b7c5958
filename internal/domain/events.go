package domain

import "time"

// EventType identifies a notification emitted by the matching engine.
type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderFilled    EventType = "order.filled"
	EventOrderCancelled EventType = "order.cancelled"
	EventTradeExecuted  EventType = "trade.executed"
	EventLTPUpdated     EventType = "ltp.updated"
	EventLevelCreated   EventType = "level.created"
	EventLevelRemoved   EventType = "level.removed"
	EventDepthSnapshot  EventType = "depth.snapshot"
)

// LevelView is a read-only aggregated view of one price level.
type LevelView struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
	Orders int   `json:"orders"`
}

// Event is a notification record produced while the book lock is held and
// delivered to external observers after the lock is released. Events are
// emitted in the order the corresponding state changes occurred; they are
// never consumed internally.
//
// Which fields are set depends on Type: order events carry OrderID,
// AccountID, Side and the fill delta/remaining; trade events carry Trade;
// level events carry Side and Price; snapshots carry Bids/Asks.
type Event struct {
	Type      EventType   `json:"type"`
	Symbol    string      `json:"symbol"`
	OrderID   uint64      `json:"order_id,omitempty"`
	AccountID string      `json:"account_id,omitempty"`
	Side      OrderSide   `json:"side,omitempty"`
	Price     int64       `json:"price,omitempty"`
	Quantity  int64       `json:"quantity,omitempty"` // fill delta for order.filled
	Remaining int64       `json:"remaining,omitempty"`
	Trade     *Trade      `json:"trade,omitempty"`
	Bids      []LevelView `json:"bids,omitempty"`
	Asks      []LevelView `json:"asks,omitempty"`
	At        time.Time   `json:"at"`
}
