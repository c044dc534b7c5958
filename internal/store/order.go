package store

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/dspereira/openbook/internal/domain"
)

// OrderStore owns all order records. It allocates globally unique,
// monotonically increasing order ids, keeps a primary index by id, a full
// per-account history, and a per-account ordered set of open order ids.
// Mutating an order's fill state is the matching engine's exclusive
// responsibility; the store only tracks membership.
type OrderStore struct {
	mu            sync.RWMutex
	nextID        uint64
	orders        map[uint64]*domain.Order
	accountOrders map[string][]*domain.Order       // account_id → orders (append-only)
	open          map[string]*btree.BTreeG[uint64] // account_id → open order ids
}

const openIndexDegree = 32

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[uint64]*domain.Order),
		accountOrders: make(map[string][]*domain.Order),
		open:          make(map[string]*btree.BTreeG[uint64]),
	}
}

// Create validates the order, allocates the next id, marks it active, and
// records it against its account. The id counter never moves on a
// validation failure, so a rejected submission leaves no trace.
func (s *OrderStore) Create(o *domain.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	o.ID = s.nextID
	o.Filled = 0
	o.Status = domain.OrderStatusActive
	o.CreatedAt = time.Now()
	o.Trades = []*domain.Trade{}

	s.orders[o.ID] = o
	s.accountOrders[o.AccountID] = append(s.accountOrders[o.AccountID], o)

	idx := s.open[o.AccountID]
	if idx == nil {
		idx = btree.NewG[uint64](openIndexDegree, func(a, b uint64) bool { return a < b })
		s.open[o.AccountID] = idx
	}
	idx.ReplaceOrInsert(o.ID)

	return nil
}

// Get retrieves an order by id. It returns domain.ErrOrderNotFound if the
// id was never allocated.
func (s *OrderStore) Get(id uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// Resolve returns the order for id, or nil if unknown. Fast path for the
// engine's queue-link maintenance.
func (s *OrderStore) Resolve(id uint64) *domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id]
}

// CloseOpen removes the order from its account's open set. Called by the
// engine when an order reaches a terminal state.
func (s *OrderStore) CloseOpen(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.open[o.AccountID]; ok {
		idx.Delete(o.ID)
	}
}

// OpenOrders returns the account's open order ids in ascending id order,
// which is submission order since ids are monotonic.
func (s *OrderStore) OpenOrders(accountID string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.open[accountID]
	if !ok {
		return []uint64{}
	}
	out := make([]uint64, 0, idx.Len())
	idx.Ascend(func(id uint64) bool {
		out = append(out, id)
		return true
	})
	return out
}

// ListByAccount returns orders for an account in reverse chronological
// order (newest first). If status is non-nil, only orders matching that
// status are included. Pagination is 1-based. Returns the matching orders
// for the requested page and the total count before pagination.
func (s *OrderStore) ListByAccount(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.accountOrders[accountID]

	filtered := make([]*domain.Order, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total {
		return []*domain.Order{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], total
}
