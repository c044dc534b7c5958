package engine

import (
	"sync"
	"time"

	"github.com/dspereira/openbook/internal/domain"
)

// Book holds the mutable matching state for a single market: the two
// sorted level indexes, the last traded price, and the lock that makes
// every intake or cancellation an indivisible unit. A book is created once
// when its market first appears and lives for the market's lifetime.
type Book struct {
	symbol      string
	mu          sync.RWMutex
	bids        *levelIndex
	asks        *levelIndex
	lastPrice   int64 // 0 until the first trade
	lastTradeAt time.Time
}

// NewBook creates an empty book for the given symbol. The resolver maps
// order ids to records for queue-link maintenance.
func NewBook(symbol string, r resolver) *Book {
	return &Book{
		symbol: symbol,
		bids:   newBidIndex(r),
		asks:   newAskIndex(r),
	}
}

// RLock acquires the read lock on the book.
func (b *Book) RLock() {
	b.mu.RLock()
}

// RUnlock releases the read lock on the book.
func (b *Book) RUnlock() {
	b.mu.RUnlock()
}

// side returns the level index for the given order side.
func (b *Book) side(s domain.OrderSide) *levelIndex {
	if s == domain.OrderSideBuy {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest resting buy price.
func (b *Book) BestBid() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.bestPrice()
}

// BestAsk returns the lowest resting sell price.
func (b *Book) BestAsk() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.bestPrice()
}

// Spread returns best ask minus best bid, or 0 if either side is empty.
func (b *Book) Spread() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, okB := b.bids.bestPrice()
	ask, okA := b.asks.bestPrice()
	if !okB || !okA {
		return 0
	}
	return ask - bid
}

// LastPrice returns the last traded price, or (0, false) before any trade.
func (b *Book) LastPrice() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastPrice == 0 {
		return 0, false
	}
	return b.lastPrice, true
}

// LastTradeAt returns the execution time of the most recent trade.
func (b *Book) LastTradeAt() (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastTradeAt.IsZero() {
		return time.Time{}, false
	}
	return b.lastTradeAt, true
}

// TopBids returns up to n aggregated bid levels, best first.
func (b *Book) TopBids(n int) []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.front(n)
}

// TopAsks returns up to n aggregated ask levels, best first.
func (b *Book) TopAsks(n int) []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.front(n)
}

// Depth returns up to n levels of both sides as a consistent snapshot
// taken under a single read lock.
func (b *Book) Depth(n int) (bids, asks []PriceLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.front(n), b.asks.front(n)
}

// BidOrders returns the number of individual resting buy orders.
func (b *Book) BidOrders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.count
}

// AskOrders returns the number of individual resting sell orders.
func (b *Book) AskOrders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.count
}

// BookManager is a thread-safe map of symbol → Book.
type BookManager struct {
	mu      sync.RWMutex
	books   map[string]*Book
	resolve resolver
}

// NewBookManager creates a BookManager whose books resolve order ids
// through the given resolver.
func NewBookManager(r resolver) *BookManager {
	return &BookManager{
		books:   make(map[string]*Book),
		resolve: r,
	}
}

// GetOrCreate returns the book for the given symbol, creating one if it
// doesn't already exist.
func (bm *BookManager) GetOrCreate(symbol string) *Book {
	bm.mu.RLock()
	book, ok := bm.books[symbol]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[symbol]; ok {
		return book
	}
	book = NewBook(symbol, bm.resolve)
	bm.books[symbol] = book
	return book
}

// Get returns the book for a symbol if one exists.
func (bm *BookManager) Get(symbol string) (*Book, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	book, ok := bm.books[symbol]
	return book, ok
}

// Symbols returns the symbols with an existing book.
func (bm *BookManager) Symbols() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	out := make([]string, 0, len(bm.books))
	for s := range bm.books {
		out = append(out, s)
	}
	return out
}
