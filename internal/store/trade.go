package store

import (
	"sync"

	"github.com/dspereira/openbook/internal/domain"
)

// TradeLedger is the append-only record of executions. It allocates
// monotonically increasing trade ids across all symbols and keeps each
// symbol's trades in chronological order. Records are never mutated or
// deleted. Count and paged access are the first-class read paths; pulling
// the full history is supported but degrades with size.
type TradeLedger struct {
	mu     sync.RWMutex
	nextID uint64
	trades map[string][]*domain.Trade // symbol → trades (chronological)
}

// NewTradeLedger creates an empty TradeLedger.
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{
		trades: make(map[string][]*domain.Trade),
	}
}

// Record assigns the next sequential id to the trade and appends it to
// its symbol's log. Returns the allocated id.
func (l *TradeLedger) Record(t *domain.Trade) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	t.ID = l.nextID
	l.trades[t.Symbol] = append(l.trades[t.Symbol], t)
	return t.ID
}

// Count returns the number of trades recorded for a symbol.
func (l *TradeLedger) Count(symbol string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades[symbol])
}

// BySymbol returns one page of a symbol's trades in chronological order.
// Pagination is 1-based. Returns the page and the total trade count.
func (l *TradeLedger) BySymbol(symbol string, page, limit int) ([]*domain.Trade, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.trades[symbol]
	total := len(all)

	start := (page - 1) * limit
	if start >= total {
		return []*domain.Trade{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]*domain.Trade, end-start)
	copy(out, all[start:end])
	return out, total
}

// All returns every trade for a symbol in chronological order. This walks
// the whole log; callers wanting bounded work should page with BySymbol.
func (l *TradeLedger) All(symbol string) []*domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.trades[symbol]
	out := make([]*domain.Trade, len(all))
	copy(out, all)
	return out
}

// Last returns the most recent trade for a symbol, or nil if none exist.
func (l *TradeLedger) Last(symbol string) *domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.trades[symbol]
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}
