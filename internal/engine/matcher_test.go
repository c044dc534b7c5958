package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/store"
)

// newTestMatcher creates a Matcher with fresh stores for testing.
func newTestMatcher() (*Matcher, *store.AccountStore, *store.OrderStore, *store.TradeLedger) {
	accounts := store.NewAccountStore()
	orders := store.NewOrderStore()
	ledger := store.NewTradeLedger()
	books := NewBookManager(orders.Resolve)
	symbols := domain.NewSymbolRegistry()
	m := NewMatcher(books, accounts, orders, ledger, symbols)
	return m, accounts, orders, ledger
}

// registerAccount is a helper that creates and stores an account.
func registerAccount(as *store.AccountStore, id string, cash int64, holdings map[string]*domain.Holding) *domain.Account {
	if holdings == nil {
		holdings = make(map[string]*domain.Holding)
	}
	a := &domain.Account{
		AccountID:   id,
		CashBalance: cash,
		Holdings:    holdings,
		CreatedAt:   time.Now(),
	}
	_ = as.Create(a)
	return a
}

// newLimitOrder creates a limit order struct (not yet submitted).
func newLimitOrder(accountID string, side domain.OrderSide, symbol string, price, qty int64) *domain.Order {
	return &domain.Order{
		Kind:      domain.OrderKindLimit,
		AccountID: accountID,
		Side:      side,
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
	}
}

// newMarketOrder creates a market order struct (not yet submitted).
func newMarketOrder(accountID string, side domain.OrderSide, symbol string, qty int64) *domain.Order {
	return &domain.Order{
		Kind:      domain.OrderKindMarket,
		AccountID: accountID,
		Side:      side,
		Symbol:    symbol,
		Quantity:  qty,
	}
}

func TestSubmitLimit_BuyNoMatch_RestsOnBook(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 100000, nil) // $1000.00

	order := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 15000, 5)
	trades, events, err := m.SubmitOrder(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected 0 trades, got %d", len(trades))
	}
	if order.Status != domain.OrderStatusActive {
		t.Errorf("expected status active, got %s", order.Status)
	}
	if order.Remaining() != 5 {
		t.Errorf("expected remaining 5, got %d", order.Remaining())
	}
	if order.ID == 0 {
		t.Error("expected order id to be assigned")
	}

	book := m.books.GetOrCreate("AAPL")
	best, ok := book.BestBid()
	if !ok || best != 15000 {
		t.Errorf("expected best bid 15000, got %d (ok=%v)", best, ok)
	}
	if book.BidOrders() != 1 {
		t.Errorf("expected 1 resting bid, got %d", book.BidOrders())
	}

	// A new level was created for the rested remainder.
	if events[0].Type != domain.EventOrderCreated {
		t.Errorf("expected first event order.created, got %s", events[0].Type)
	}
	if events[len(events)-1].Type != domain.EventLevelCreated {
		t.Errorf("expected last event level.created, got %s", events[len(events)-1].Type)
	}

	// Cash backing the order is reserved, not spent.
	buyer, _ := as.Get("buyer")
	if buyer.CashBalance != 100000 {
		t.Errorf("expected cash balance unchanged, got %d", buyer.CashBalance)
	}
	if buyer.ReservedCash != 75000 {
		t.Errorf("expected reserved cash 75000, got %d", buyer.ReservedCash)
	}
}

func TestSubmitLimit_InsufficientCash_NoBookMutation(t *testing.T) {
	m, as, os, _ := newTestMatcher()
	registerAccount(as, "buyer", 1000, nil)

	order := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 15000, 5)
	_, _, err := m.SubmitOrder(order)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if order.ID != 0 {
		t.Error("expected no order id on custody failure")
	}

	book := m.books.GetOrCreate("AAPL")
	if book.BidOrders() != 0 {
		t.Error("expected book untouched on custody failure")
	}
	if got := os.OpenOrders("buyer"); len(got) != 0 {
		t.Errorf("expected no open orders, got %v", got)
	}
}

func TestSubmitLimit_SellWithoutHoldings_Rejected(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, nil)

	order := newLimitOrder("seller", domain.OrderSideSell, "AAPL", 15000, 5)
	_, _, err := m.SubmitOrder(order)
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}
}

func TestSubmitLimit_UnknownAccount_Rejected(t *testing.T) {
	m, _, _, _ := newTestMatcher()

	order := newLimitOrder("ghost", domain.OrderSideBuy, "AAPL", 100, 1)
	_, _, err := m.SubmitOrder(order)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSubmitLimit_PartialFill_RemainderRests(t *testing.T) {
	m, as, _, ledger := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 3}})
	registerAccount(as, "buyer", 100000, nil)

	ask := newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 3)
	if _, _, err := m.SubmitOrder(ask); err != nil {
		t.Fatalf("submit ask: %v", err)
	}

	bid := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 5)
	trades, _, err := m.SubmitOrder(bid)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != 10000 || trades[0].Quantity != 3 {
		t.Errorf("expected trade 3@10000, got %d@%d", trades[0].Quantity, trades[0].Price)
	}
	if ask.Status != domain.OrderStatusFilled {
		t.Errorf("expected ask filled, got %s", ask.Status)
	}
	if bid.Status != domain.OrderStatusActive || bid.Remaining() != 2 {
		t.Errorf("expected bid active with remaining 2, got %s remaining %d", bid.Status, bid.Remaining())
	}

	book := m.books.GetOrCreate("AAPL")
	if _, ok := book.BestAsk(); ok {
		t.Error("expected ask side empty after full fill")
	}
	best, ok := book.BestBid()
	if !ok || best != 10000 {
		t.Errorf("expected remainder resting at 10000, got %d (ok=%v)", best, ok)
	}
	if ledger.Count("AAPL") != 1 {
		t.Errorf("expected 1 ledger row, got %d", ledger.Count("AAPL"))
	}

	// Settlement checks: one row, both sides moved.
	buyer, _ := as.Get("buyer")
	seller, _ := as.Get("seller")
	if buyer.CashBalance != 70000 {
		t.Errorf("expected buyer cash 70000, got %d", buyer.CashBalance)
	}
	if buyer.ReservedCash != 20000 {
		t.Errorf("expected buyer reserved 20000 for the resting remainder, got %d", buyer.ReservedCash)
	}
	if got := buyer.Holdings["AAPL"].Quantity; got != 3 {
		t.Errorf("expected buyer holding 3, got %d", got)
	}
	if seller.CashBalance != 30000 {
		t.Errorf("expected seller cash 30000, got %d", seller.CashBalance)
	}
	if got := seller.Holdings["AAPL"].Quantity; got != 0 {
		t.Errorf("expected seller holding 0, got %d", got)
	}
}

func TestSubmitLimit_PriceImprovementGoesToRestingSide(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 1}})
	registerAccount(as, "buyer", 100000, nil)

	ask := newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 1)
	if _, _, err := m.SubmitOrder(ask); err != nil {
		t.Fatalf("submit ask: %v", err)
	}

	// Buyer is willing to pay 10100 but executes at the resting 10000.
	bid := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10100, 1)
	trades, _, err := m.SubmitOrder(bid)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	if len(trades) != 1 || trades[0].Price != 10000 {
		t.Fatalf("expected execution at resting price 10000, got %+v", trades)
	}

	// The aggressive reservation is fully unwound.
	buyer, _ := as.Get("buyer")
	if buyer.ReservedCash != 0 {
		t.Errorf("expected zero reserved cash, got %d", buyer.ReservedCash)
	}
	if buyer.CashBalance != 90000 {
		t.Errorf("expected buyer cash 90000, got %d", buyer.CashBalance)
	}
}

func TestSubmitLimit_FIFOAtSamePrice(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "s1", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "s2", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "buyer", 1000000, nil)

	first := newLimitOrder("s1", domain.OrderSideSell, "AAPL", 10000, 5)
	second := newLimitOrder("s2", domain.OrderSideSell, "AAPL", 10000, 5)
	if _, _, err := m.SubmitOrder(first); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if _, _, err := m.SubmitOrder(second); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	bid := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 7)
	trades, _, err := m.SubmitOrder(bid)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].SellOrderID != first.ID || trades[0].Quantity != 5 {
		t.Errorf("expected first fill against order %d for 5, got order %d for %d",
			first.ID, trades[0].SellOrderID, trades[0].Quantity)
	}
	if trades[1].SellOrderID != second.ID || trades[1].Quantity != 2 {
		t.Errorf("expected second fill against order %d for 2, got order %d for %d",
			second.ID, trades[1].SellOrderID, trades[1].Quantity)
	}
	if first.Status != domain.OrderStatusFilled {
		t.Errorf("expected first seller filled, got %s", first.Status)
	}
	if second.Remaining() != 3 {
		t.Errorf("expected second seller remaining 3, got %d", second.Remaining())
	}
}

func TestSubmitLimit_SweepsMultipleLevels(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 10}})
	registerAccount(as, "buyer", 1000000, nil)

	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 4)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10100, 6)); err != nil {
		t.Fatal(err)
	}

	bid := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10100, 10)
	trades, _, err := m.SubmitOrder(bid)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Best ask first, each at that level's price.
	if trades[0].Price != 10000 || trades[0].Quantity != 4 {
		t.Errorf("expected 4@10000, got %d@%d", trades[0].Quantity, trades[0].Price)
	}
	if trades[1].Price != 10100 || trades[1].Quantity != 6 {
		t.Errorf("expected 6@10100, got %d@%d", trades[1].Quantity, trades[1].Price)
	}
	if bid.Status != domain.OrderStatusFilled {
		t.Errorf("expected bid filled, got %s", bid.Status)
	}

	book := m.books.GetOrCreate("AAPL")
	if _, ok := book.BestAsk(); ok {
		t.Error("expected ask side empty after sweep")
	}
	ltp, ok := book.LastPrice()
	if !ok || ltp != 10100 {
		t.Errorf("expected last price 10100, got %d (ok=%v)", ltp, ok)
	}
}

func TestSubmitLimit_NoCross_BothRest(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "buyer", 100000, nil)

	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10100, 5)); err != nil {
		t.Fatal(err)
	}
	bid := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 5)
	trades, _, err := m.SubmitOrder(bid)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades on uncrossed book, got %d", len(trades))
	}

	book := m.books.GetOrCreate("AAPL")
	if got := book.Spread(); got != 100 {
		t.Errorf("expected spread 100, got %d", got)
	}
}

func TestSubmitMarket_SellAcrossLevels_RemainderRefunded(t *testing.T) {
	m, as, _, ledger := newTestMatcher()
	registerAccount(as, "b1", 1000000, nil)
	registerAccount(as, "b2", 1000000, nil)
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 10}})

	if _, _, err := m.SubmitOrder(newLimitOrder("b1", domain.OrderSideBuy, "AAPL", 10000, 2)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.SubmitOrder(newLimitOrder("b2", domain.OrderSideBuy, "AAPL", 9900, 5)); err != nil {
		t.Fatal(err)
	}

	order := newMarketOrder("seller", domain.OrderSideSell, "AAPL", 10)
	trades, events, err := m.SubmitOrder(order)
	if err != nil {
		t.Fatalf("submit market sell: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Price != 10000 || trades[0].Quantity != 2 {
		t.Errorf("expected 2@10000, got %d@%d", trades[0].Quantity, trades[0].Price)
	}
	if trades[1].Price != 9900 || trades[1].Quantity != 5 {
		t.Errorf("expected 5@9900, got %d@%d", trades[1].Quantity, trades[1].Price)
	}

	// Remainder of 3 is never parked: the order closes cancelled and the
	// unconsumed holding reservation is released.
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected market remainder cancelled, got %s", order.Status)
	}
	if order.Filled != 7 {
		t.Errorf("expected filled 7, got %d", order.Filled)
	}
	if events[len(events)-1].Type != domain.EventOrderCancelled {
		t.Errorf("expected trailing order.cancelled event, got %s", events[len(events)-1].Type)
	}

	seller, _ := as.Get("seller")
	h := seller.Holdings["AAPL"]
	if h.Quantity != 3 || h.ReservedQuantity != 0 {
		t.Errorf("expected 3 unreserved units left, got qty=%d reserved=%d", h.Quantity, h.ReservedQuantity)
	}
	if seller.CashBalance != 2*10000+5*9900 {
		t.Errorf("expected proceeds %d, got %d", 2*10000+5*9900, seller.CashBalance)
	}

	book := m.books.GetOrCreate("AAPL")
	if _, ok := book.BestBid(); ok {
		t.Error("expected bid side empty after sweep")
	}
	if ledger.Count("AAPL") != 2 {
		t.Errorf("expected 2 ledger rows, got %d", ledger.Count("AAPL"))
	}
}

func TestSubmitMarket_EmptyBook_CancelsImmediately(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 100000, nil)

	order := newMarketOrder("buyer", domain.OrderSideBuy, "AAPL", 5)
	trades, _, err := m.SubmitOrder(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if order.ID == 0 {
		t.Error("expected order id assigned even with no liquidity")
	}

	buyer, _ := as.Get("buyer")
	if buyer.CashBalance != 100000 || buyer.ReservedCash != 0 {
		t.Errorf("expected balances untouched, got cash=%d reserved=%d", buyer.CashBalance, buyer.ReservedCash)
	}
}

func TestSubmitMarket_BuyCostSimulation_Rejected(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "buyer", 100, nil) // $1.00, far short

	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 5)); err != nil {
		t.Fatal(err)
	}

	order := newMarketOrder("buyer", domain.OrderSideBuy, "AAPL", 5)
	_, _, err := m.SubmitOrder(order)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if order.ID != 0 {
		t.Error("expected no order id on rejection")
	}

	// The resting ask is untouched.
	book := m.books.GetOrCreate("AAPL")
	if book.AskOrders() != 1 {
		t.Errorf("expected 1 resting ask, got %d", book.AskOrders())
	}
}

func TestSubmitOrder_ValidationErrors(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 100000, nil)

	var ve *domain.ValidationError

	bad := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 0, 5)
	if _, _, err := m.SubmitOrder(bad); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for zero price, got %v", err)
	}

	bad = newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 100, 0)
	if _, _, err := m.SubmitOrder(bad); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for zero quantity, got %v", err)
	}
}

func TestCancel_RestingOrder_ReleasesReservation(t *testing.T) {
	m, as, os, _ := newTestMatcher()
	registerAccount(as, "buyer", 100000, nil)

	order := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 5)
	if _, _, err := m.SubmitOrder(order); err != nil {
		t.Fatal(err)
	}

	cancelled, events, err := m.Cancel(order.ID, "buyer")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Error("expected cancelled_at to be set")
	}

	buyer, _ := as.Get("buyer")
	if buyer.ReservedCash != 0 {
		t.Errorf("expected reservation released, got %d", buyer.ReservedCash)
	}

	// Sole occupant: the level unlinks and the book side empties.
	book := m.books.GetOrCreate("AAPL")
	if _, ok := book.BestBid(); ok {
		t.Error("expected empty bid side after cancel")
	}
	foundLevelRemoved := false
	for _, e := range events {
		if e.Type == domain.EventLevelRemoved {
			foundLevelRemoved = true
		}
	}
	if !foundLevelRemoved {
		t.Error("expected level.removed event for sole occupant")
	}
	if got := os.OpenOrders("buyer"); len(got) != 0 {
		t.Errorf("expected no open orders, got %v", got)
	}
}

func TestCancel_MiddleOfQueue_PreservesNeighbors(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "s1", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "s2", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "s3", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "buyer", 1000000, nil)

	a := newLimitOrder("s1", domain.OrderSideSell, "AAPL", 10000, 5)
	b := newLimitOrder("s2", domain.OrderSideSell, "AAPL", 10000, 5)
	c := newLimitOrder("s3", domain.OrderSideSell, "AAPL", 10000, 5)
	for _, o := range []*domain.Order{a, b, c} {
		if _, _, err := m.SubmitOrder(o); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := m.Cancel(b.ID, "s2"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Fills must now go a then c, skipping the cancelled middle order.
	trades, _, err := m.SubmitOrder(newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].SellOrderID != a.ID || trades[1].SellOrderID != c.ID {
		t.Errorf("expected fills against %d then %d, got %d then %d",
			a.ID, c.ID, trades[0].SellOrderID, trades[1].SellOrderID)
	}
}

func TestCancel_NotOwner_Rejected(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 100000, nil)
	registerAccount(as, "other", 100000, nil)

	order := newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 5)
	if _, _, err := m.SubmitOrder(order); err != nil {
		t.Fatal(err)
	}

	_, _, err := m.Cancel(order.ID, "other")
	if !errors.Is(err, domain.ErrNotOrderOwner) {
		t.Fatalf("expected ErrNotOrderOwner, got %v", err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Errorf("expected order still active, got %s", order.Status)
	}
}

func TestCancel_FilledOrder_Rejected(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})
	registerAccount(as, "buyer", 100000, nil)

	ask := newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 5)
	if _, _, err := m.SubmitOrder(ask); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.SubmitOrder(newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 5)); err != nil {
		t.Fatal(err)
	}

	_, _, err := m.Cancel(ask.ID, "seller")
	if !errors.Is(err, domain.ErrOrderNotActive) {
		t.Fatalf("expected ErrOrderNotActive, got %v", err)
	}
}

func TestCancel_UnknownOrder_NotFound(t *testing.T) {
	m, _, _, _ := newTestMatcher()
	_, _, err := m.Cancel(42, "anyone")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestQuote_BuyAcrossLevels(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 10}})

	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10000, 4)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10100, 6)); err != nil {
		t.Fatal(err)
	}

	q := m.Quote("AAPL", domain.OrderSideBuy, 6)
	if q.QuantityAvailable != 6 || !q.FullyFillable {
		t.Fatalf("expected 6 fully fillable, got %d (fillable=%v)", q.QuantityAvailable, q.FullyFillable)
	}
	wantTotal := int64(4*10000 + 2*10100)
	if q.EstimatedTotal == nil || *q.EstimatedTotal != wantTotal {
		t.Errorf("expected total %d, got %v", wantTotal, q.EstimatedTotal)
	}
	if q.EstimatedAvgPrice == nil || *q.EstimatedAvgPrice != wantTotal/6 {
		t.Errorf("expected avg %d, got %v", wantTotal/6, q.EstimatedAvgPrice)
	}
	if len(q.PriceLevels) != 2 {
		t.Errorf("expected 2 quoted levels, got %d", len(q.PriceLevels))
	}

	// The quote is read-only: the book is unchanged.
	book := m.books.GetOrCreate("AAPL")
	if book.AskOrders() != 2 {
		t.Errorf("expected 2 resting asks after quote, got %d", book.AskOrders())
	}
}

func TestQuote_InsufficientDepth(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 1000000, nil)

	if _, _, err := m.SubmitOrder(newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 10000, 3)); err != nil {
		t.Fatal(err)
	}

	q := m.Quote("AAPL", domain.OrderSideSell, 10)
	if q.QuantityAvailable != 3 || q.FullyFillable {
		t.Errorf("expected 3 partially fillable, got %d (fillable=%v)", q.QuantityAvailable, q.FullyFillable)
	}
}

func TestQuote_EmptyBook(t *testing.T) {
	m, _, _, _ := newTestMatcher()

	q := m.Quote("AAPL", domain.OrderSideBuy, 5)
	if q.QuantityAvailable != 0 || q.FullyFillable {
		t.Errorf("expected nothing available, got %d (fillable=%v)", q.QuantityAvailable, q.FullyFillable)
	}
	if q.EstimatedAvgPrice != nil || q.EstimatedTotal != nil {
		t.Error("expected nil estimates on empty book")
	}
}

func TestSubmitLimit_DescendingBidLevels(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 10000000, nil)

	for _, p := range []int64{10000, 10200, 10100} {
		if _, _, err := m.SubmitOrder(newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", p, 1)); err != nil {
			t.Fatal(err)
		}
	}

	book := m.books.GetOrCreate("AAPL")
	levels := book.TopBids(10)
	want := []int64{10200, 10100, 10000}
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(levels))
	}
	for i, lvl := range levels {
		if lvl.Price != want[i] {
			t.Errorf("level %d: expected %d, got %d", i, want[i], lvl.Price)
		}
	}
}
