package engine

import (
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/store"
)

// QuoteResult holds the result of a read-only market order simulation.
type QuoteResult struct {
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice *int64 // nil when no liquidity
	EstimatedTotal    *int64 // nil when no liquidity
	PriceLevels       []PriceLevel
}

// Matcher implements the matching engine for limit and market orders.
//
// Every intake and cancellation runs under the target book's write lock
// from validation through resolution, so no other operation can observe
// partially updated book state. Notification events are collected while
// the lock is held and handed back to the caller for dispatch after the
// lock is released, in state-change order.
type Matcher struct {
	books    *BookManager
	accounts *store.AccountStore
	orders   *store.OrderStore
	ledger   *store.TradeLedger
	symbols  *domain.SymbolRegistry
}

// NewMatcher creates a Matcher with the given dependencies.
func NewMatcher(
	books *BookManager,
	accounts *store.AccountStore,
	orders *store.OrderStore,
	ledger *store.TradeLedger,
	symbols *domain.SymbolRegistry,
) *Matcher {
	return &Matcher{
		books:    books,
		accounts: accounts,
		orders:   orders,
		ledger:   ledger,
		symbols:  symbols,
	}
}

// Books returns the book manager for read-only consumers.
func (m *Matcher) Books() *BookManager {
	return m.books
}

// SubmitOrder processes an incoming order through the matching engine:
// validate, reserve custody, run the match loop against the opposite side,
// then rest the remainder (limit) or refund it (market).
//
// The caller provides an Order with Kind, AccountID, Side, Symbol, Price,
// and Quantity set. The matcher assigns the id and owns all status
// transitions. A validation or custody failure aborts before any book
// mutation: no order id is allocated and no event is emitted.
func (m *Matcher) SubmitOrder(order *domain.Order) ([]*domain.Trade, []domain.Event, error) {
	if err := order.Validate(); err != nil {
		return nil, nil, err
	}
	if order.Kind == domain.OrderKindMarket {
		return m.submitMarket(order)
	}
	return m.submitLimit(order)
}

func (m *Matcher) submitLimit(order *domain.Order) ([]*domain.Trade, []domain.Event, error) {
	book := m.books.GetOrCreate(order.Symbol)

	book.mu.Lock()
	defer book.mu.Unlock()

	// Reserve custody. This is the only fallible external effect; failure
	// aborts with the book untouched.
	acct, err := m.accounts.Get(order.AccountID)
	if err != nil {
		return nil, nil, err
	}

	acct.Mu.Lock()
	if order.Side == domain.OrderSideBuy {
		required := order.Price * order.Quantity
		if acct.AvailableCash() < required {
			acct.Mu.Unlock()
			return nil, nil, domain.ErrInsufficientBalance
		}
		acct.ReservedCash += required
	} else {
		if acct.AvailableQuantity(order.Symbol) < order.Quantity {
			acct.Mu.Unlock()
			return nil, nil, domain.ErrInsufficientHoldings
		}
		acct.Holding(order.Symbol).ReservedQuantity += order.Quantity
	}
	acct.Mu.Unlock()

	m.symbols.Register(order.Symbol)

	if err := m.orders.Create(order); err != nil {
		m.release(order, order.Quantity)
		return nil, nil, err
	}

	events := []domain.Event{{
		Type:      domain.EventOrderCreated,
		Symbol:    order.Symbol,
		OrderID:   order.ID,
		AccountID: order.AccountID,
		Side:      order.Side,
		Price:     order.Price,
		Quantity:  order.Quantity,
		At:        order.CreatedAt,
	}}

	trades, matchEvents := m.match(book, order)
	events = append(events, matchEvents...)

	if order.Remaining() > 0 {
		// Rest the unfilled remainder on the order's own side.
		if book.side(order.Side).insert(order) {
			events = append(events, domain.Event{
				Type:   domain.EventLevelCreated,
				Symbol: order.Symbol,
				Side:   order.Side,
				Price:  order.Price,
				At:     time.Now(),
			})
		}
	} else {
		order.Status = domain.OrderStatusFilled
		m.orders.CloseOpen(order)
	}

	return trades, events, nil
}

func (m *Matcher) submitMarket(order *domain.Order) ([]*domain.Trade, []domain.Event, error) {
	book := m.books.GetOrCreate(order.Symbol)

	book.mu.Lock()
	defer book.mu.Unlock()

	acct, err := m.accounts.Get(order.AccountID)
	if err != nil {
		return nil, nil, err
	}

	acct.Mu.Lock()
	if order.Side == domain.OrderSideBuy {
		// Simulate the fill against the current asks to estimate cost.
		// No reservation: under the same lock, execution sees exactly the
		// levels the simulation saw.
		var cost int64
		remaining := order.Quantity
		book.asks.walk(func(lvl PriceLevel) bool {
			fill := remaining
			if lvl.Volume < fill {
				fill = lvl.Volume
			}
			cost += lvl.Price * fill
			remaining -= fill
			return remaining > 0
		})
		if acct.AvailableCash() < cost {
			acct.Mu.Unlock()
			return nil, nil, domain.ErrInsufficientBalance
		}
	} else {
		if acct.AvailableQuantity(order.Symbol) < order.Quantity {
			acct.Mu.Unlock()
			return nil, nil, domain.ErrInsufficientHoldings
		}
		acct.Holding(order.Symbol).ReservedQuantity += order.Quantity
	}
	acct.Mu.Unlock()

	m.symbols.Register(order.Symbol)

	if err := m.orders.Create(order); err != nil {
		if order.Side == domain.OrderSideSell {
			m.release(order, order.Quantity)
		}
		return nil, nil, err
	}

	events := []domain.Event{{
		Type:      domain.EventOrderCreated,
		Symbol:    order.Symbol,
		OrderID:   order.ID,
		AccountID: order.AccountID,
		Side:      order.Side,
		Quantity:  order.Quantity,
		At:        order.CreatedAt,
	}}

	trades, matchEvents := m.match(book, order)
	events = append(events, matchEvents...)

	if order.Remaining() > 0 {
		// Market remainder is never parked: refund the unconsumed
		// reservation and close the order out.
		m.release(order, order.Remaining())
		now := time.Now()
		order.Status = domain.OrderStatusCancelled
		order.CancelledAt = &now
		m.orders.CloseOpen(order)
		events = append(events, domain.Event{
			Type:      domain.EventOrderCancelled,
			Symbol:    order.Symbol,
			OrderID:   order.ID,
			AccountID: order.AccountID,
			Side:      order.Side,
			Remaining: order.Remaining(),
			At:        now,
		})
	} else {
		order.Status = domain.OrderStatusFilled
		m.orders.CloseOpen(order)
	}

	return trades, events, nil
}

// match runs the match loop: while the incoming order has unfilled
// quantity and the best opposite level crosses (limit) or exists (market),
// consume the FIFO head of that level. Execution is always at the resting
// order's price, so price improvement goes to the resting side.
func (m *Matcher) match(book *Book, order *domain.Order) ([]*domain.Trade, []domain.Event) {
	opp := book.side(order.Side.Opposite())

	var trades []*domain.Trade
	var events []domain.Event

	for order.Remaining() > 0 {
		best, ok := opp.bestPrice()
		if !ok {
			break
		}
		if order.Kind == domain.OrderKindLimit && !crosses(order.Side, order.Price, best) {
			break
		}

		resting := opp.head()

		fill := order.Remaining()
		if resting.Remaining() < fill {
			fill = resting.Remaining()
		}
		price := resting.Price

		order.Filled += fill
		resting.Filled += fill
		opp.reduce(price, fill)

		m.settle(book.symbol, order, resting, price, fill)

		now := time.Now()
		trade := m.recordTrade(order, resting, price, fill, now)
		trades = append(trades, trade)

		book.lastPrice = price
		book.lastTradeAt = now

		events = append(events,
			domain.Event{
				Type:   domain.EventTradeExecuted,
				Symbol: order.Symbol,
				Trade:  trade,
				At:     now,
			},
			domain.Event{
				Type:      domain.EventOrderFilled,
				Symbol:    order.Symbol,
				OrderID:   resting.ID,
				AccountID: resting.AccountID,
				Side:      resting.Side,
				Quantity:  fill,
				Remaining: resting.Remaining(),
				At:        now,
			},
			domain.Event{
				Type:      domain.EventOrderFilled,
				Symbol:    order.Symbol,
				OrderID:   order.ID,
				AccountID: order.AccountID,
				Side:      order.Side,
				Quantity:  fill,
				Remaining: order.Remaining(),
				At:        now,
			},
			domain.Event{
				Type:   domain.EventLTPUpdated,
				Symbol: order.Symbol,
				Price:  price,
				At:     now,
			},
		)

		if resting.Remaining() == 0 {
			resting.Status = domain.OrderStatusFilled
			levelRemoved := opp.remove(resting)
			m.orders.CloseOpen(resting)
			if levelRemoved {
				events = append(events, domain.Event{
					Type:   domain.EventLevelRemoved,
					Symbol: order.Symbol,
					Side:   resting.Side,
					Price:  price,
					At:     now,
				})
			}
		}
	}

	return trades, events
}

// crosses reports whether a limit order at limit price crosses the best
// opposite price.
func crosses(side domain.OrderSide, limit, best int64) bool {
	if side == domain.OrderSideBuy {
		return best <= limit
	}
	return best >= limit
}

// recordTrade writes one ledger row per match event, carrying both order
// ids and both counterparties, and attaches it to both orders.
func (m *Matcher) recordTrade(incoming, resting *domain.Order, price, fill int64, at time.Time) *domain.Trade {
	buyOrder, sellOrder := incoming, resting
	if incoming.Side == domain.OrderSideSell {
		buyOrder, sellOrder = resting, incoming
	}

	trade := &domain.Trade{
		Symbol:      incoming.Symbol,
		BuyOrderID:  buyOrder.ID,
		SellOrderID: sellOrder.ID,
		BuyerID:     buyOrder.AccountID,
		SellerID:    sellOrder.AccountID,
		Price:       price,
		Quantity:    fill,
		ExecutedAt:  at,
	}
	m.ledger.Record(trade)

	incoming.Trades = append(incoming.Trades, trade)
	resting.Trades = append(resting.Trades, trade)
	return trade
}

// settle moves cash and holdings between the two counterparties for one
// fill. A reservation held at intake time guarantees these transfers
// cannot fail, which keeps the whole matching pass all-or-nothing.
func (m *Matcher) settle(symbol string, incoming, resting *domain.Order, price, fill int64) {
	buyOrder, sellOrder := incoming, resting
	if incoming.Side == domain.OrderSideSell {
		buyOrder, sellOrder = resting, incoming
	}

	buyer, _ := m.accounts.Get(buyOrder.AccountID)
	buyer.Mu.Lock()
	buyer.CashBalance -= price * fill
	if buyOrder.Kind == domain.OrderKindLimit {
		buyer.ReservedCash -= buyOrder.Price * fill
	}
	buyer.Holding(symbol).Quantity += fill
	buyer.Mu.Unlock()

	seller, _ := m.accounts.Get(sellOrder.AccountID)
	seller.Mu.Lock()
	seller.CashBalance += price * fill
	h := seller.Holding(symbol)
	h.Quantity -= fill
	h.ReservedQuantity -= fill
	seller.Mu.Unlock()
}

// release returns qty of the order's unconsumed reservation to the
// account. Market buys reserve nothing, so there is nothing to release.
func (m *Matcher) release(order *domain.Order, qty int64) {
	acct, err := m.accounts.Get(order.AccountID)
	if err != nil {
		return
	}

	acct.Mu.Lock()
	defer acct.Mu.Unlock()
	if order.Side == domain.OrderSideBuy {
		if order.Kind == domain.OrderKindLimit {
			acct.ReservedCash -= order.Price * qty
		}
	} else {
		if h, ok := acct.Holdings[order.Symbol]; ok {
			h.ReservedQuantity -= qty
		}
	}
}

// Cancel cancels an active order on behalf of requester. Only the order's
// owner may cancel, and only while the order is active. Cancellation
// detaches the order from its price level, releases the unconsumed
// reservation, and transitions the order to cancelled.
func (m *Matcher) Cancel(orderID uint64, requester string) (*domain.Order, []domain.Event, error) {
	order, err := m.orders.Get(orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.AccountID != requester {
		return nil, nil, domain.ErrNotOrderOwner
	}
	if order.Status != domain.OrderStatusActive {
		return nil, nil, domain.ErrOrderNotActive
	}

	book := m.books.GetOrCreate(order.Symbol)
	book.mu.Lock()
	defer book.mu.Unlock()

	// Re-check under the book lock: a concurrent match may have filled it.
	if order.Status != domain.OrderStatusActive {
		return nil, nil, domain.ErrOrderNotActive
	}

	var events []domain.Event
	now := time.Now()

	if order.Kind == domain.OrderKindLimit {
		if book.side(order.Side).remove(order) {
			events = append(events, domain.Event{
				Type:   domain.EventLevelRemoved,
				Symbol: order.Symbol,
				Side:   order.Side,
				Price:  order.Price,
				At:     now,
			})
		}
	}

	m.release(order, order.Remaining())

	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	m.orders.CloseOpen(order)

	events = append(events, domain.Event{
		Type:      domain.EventOrderCancelled,
		Symbol:    order.Symbol,
		OrderID:   order.ID,
		AccountID: order.AccountID,
		Side:      order.Side,
		Remaining: order.Remaining(),
		At:        now,
	})

	return order, events, nil
}

// Quote performs a read-only walk of the opposite side of the book to
// estimate the result of a market order without placing it. Buy quotes
// walk the asks (lowest first); sell quotes walk the bids (highest first).
func (m *Matcher) Quote(symbol string, side domain.OrderSide, quantity int64) *QuoteResult {
	book := m.books.GetOrCreate(symbol)

	book.mu.RLock()
	defer book.mu.RUnlock()

	result := &QuoteResult{
		PriceLevels: make([]PriceLevel, 0),
	}

	remaining := quantity
	var totalCost int64

	book.side(side.Opposite()).walk(func(lvl PriceLevel) bool {
		if remaining <= 0 {
			return false
		}
		fill := lvl.Volume
		if fill > remaining {
			fill = remaining
		}
		totalCost += lvl.Price * fill
		result.QuantityAvailable += fill
		remaining -= fill
		result.PriceLevels = append(result.PriceLevels, PriceLevel{
			Price:  lvl.Price,
			Volume: fill,
			Orders: lvl.Orders,
		})
		return true
	})

	if result.QuantityAvailable > 0 {
		avgPrice := totalCost / result.QuantityAvailable
		result.EstimatedAvgPrice = &avgPrice
		result.EstimatedTotal = &totalCost
	}
	result.FullyFillable = result.QuantityAvailable >= quantity

	return result
}
