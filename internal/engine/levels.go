package engine

import (
	"github.com/dspereira/openbook/internal/domain"
)

// PriceLevel is a read-only aggregated view of one price level.
type PriceLevel struct {
	Price  int64
	Volume int64
	Orders int
}

// priceLevel is one node of a side's sorted level list. Orders queue FIFO
// between headID and tailID via the orders' own PrevID/NextID links.
// prev/next hold the neighboring levels' prices; 0 means no neighbor.
// A level exists in the index iff its queue holds at least one order.
type priceLevel struct {
	price  int64
	headID uint64
	tailID uint64
	volume int64 // sum of remaining quantity over the queue
	orders int
	prev   int64
	next   int64
}

// resolver maps an order id to its record. The index never owns orders; it
// only rewires their queue links.
type resolver func(id uint64) *domain.Order

// levelIndex maintains one side of the book: a price-keyed table of levels
// linked into a sorted list from the best-price anchor. The ordering
// relation is injected so bids (descending) and asks (ascending) share
// the same code.
type levelIndex struct {
	better  func(a, b int64) bool // true when price a outranks price b
	levels  map[int64]*priceLevel
	best    int64 // price of the anchor level, 0 when the side is empty
	count   int   // total orders across all levels
	resolve resolver
}

// newBidIndex creates the bid-side index (higher price outranks lower).
func newBidIndex(r resolver) *levelIndex {
	return &levelIndex{
		better:  func(a, b int64) bool { return a > b },
		levels:  make(map[int64]*priceLevel),
		resolve: r,
	}
}

// newAskIndex creates the ask-side index (lower price outranks higher).
func newAskIndex(r resolver) *levelIndex {
	return &levelIndex{
		better:  func(a, b int64) bool { return a < b },
		levels:  make(map[int64]*priceLevel),
		resolve: r,
	}
}

// insert enqueues the order at the tail of its price's FIFO queue,
// creating and linking the level if no order rests at that price yet.
// Linking scans linearly from the anchor, so cost is proportional to the
// number of levels between the anchor and the insertion point, not to the
// number of orders. Returns true if a new level was created.
func (ix *levelIndex) insert(o *domain.Order) bool {
	lvl, ok := ix.levels[o.Price]
	created := false
	if !ok {
		lvl = &priceLevel{price: o.Price}
		ix.levels[o.Price] = lvl
		ix.link(lvl)
		created = true
	}

	o.PrevID = lvl.tailID
	o.NextID = 0
	if lvl.tailID == 0 {
		lvl.headID = o.ID
	} else {
		ix.resolve(lvl.tailID).NextID = o.ID
	}
	lvl.tailID = o.ID
	lvl.volume += o.Remaining()
	lvl.orders++
	ix.count++
	return created
}

// link wires a fresh level into the sorted list, updating the anchor when
// the new level outranks it.
func (ix *levelIndex) link(lvl *priceLevel) {
	if ix.best == 0 {
		ix.best = lvl.price
		return
	}
	if ix.better(lvl.price, ix.best) {
		lvl.next = ix.best
		ix.levels[ix.best].prev = lvl.price
		ix.best = lvl.price
		return
	}
	// Advance while the next level still outranks the candidate.
	cur := ix.levels[ix.best]
	for cur.next != 0 && ix.better(cur.next, lvl.price) {
		cur = ix.levels[cur.next]
	}
	lvl.prev = cur.price
	lvl.next = cur.next
	if cur.next != 0 {
		ix.levels[cur.next].prev = lvl.price
	}
	cur.next = lvl.price
}

// remove detaches the order from its level's FIFO queue and subtracts its
// remaining quantity from the level's volume. If the queue becomes empty
// the level is unlinked and deleted, re-anchoring to its successor when
// the removed level was the anchor. Returns true if the level was removed.
func (ix *levelIndex) remove(o *domain.Order) bool {
	lvl, ok := ix.levels[o.Price]
	if !ok {
		return false
	}

	if o.PrevID != 0 {
		ix.resolve(o.PrevID).NextID = o.NextID
	} else {
		lvl.headID = o.NextID
	}
	if o.NextID != 0 {
		ix.resolve(o.NextID).PrevID = o.PrevID
	} else {
		lvl.tailID = o.PrevID
	}
	o.PrevID, o.NextID = 0, 0

	lvl.volume -= o.Remaining()
	lvl.orders--
	ix.count--

	if lvl.headID != 0 {
		return false
	}

	if lvl.prev != 0 {
		ix.levels[lvl.prev].next = lvl.next
	} else {
		ix.best = lvl.next
	}
	if lvl.next != 0 {
		ix.levels[lvl.next].prev = lvl.prev
	}
	delete(ix.levels, lvl.price)
	return true
}

// reduce subtracts a filled quantity from the level's aggregate volume.
// The match loop calls this as fills happen so that volume always equals
// the sum of remaining quantity over the queued orders.
func (ix *levelIndex) reduce(price, qty int64) {
	if lvl, ok := ix.levels[price]; ok {
		lvl.volume -= qty
	}
}

// bestPrice returns the anchor level's price, or (0, false) when empty.
func (ix *levelIndex) bestPrice() (int64, bool) {
	if ix.best == 0 {
		return 0, false
	}
	return ix.best, true
}

// head returns the FIFO head order of the anchor level, or nil when the
// side is empty. This is always the next order to be consumed.
func (ix *levelIndex) head() *domain.Order {
	if ix.best == 0 {
		return nil
	}
	return ix.resolve(ix.levels[ix.best].headID)
}

// walk iterates levels from the anchor inward without mutating state.
// The callback returns true to continue, false to stop. Each call walks
// fresh from the anchor, so the traversal is restartable.
func (ix *levelIndex) walk(fn func(PriceLevel) bool) {
	cur := ix.best
	for cur != 0 {
		lvl := ix.levels[cur]
		if !fn(PriceLevel{Price: lvl.price, Volume: lvl.volume, Orders: lvl.orders}) {
			return
		}
		cur = lvl.next
	}
}

// front returns up to max aggregated levels from the anchor inward.
func (ix *levelIndex) front(max int) []PriceLevel {
	if max <= 0 {
		return nil
	}
	out := make([]PriceLevel, 0, max)
	ix.walk(func(lvl PriceLevel) bool {
		out = append(out, lvl)
		return len(out) < max
	})
	return out
}

// volumeAt returns the aggregate volume resting at price, 0 if no level.
func (ix *levelIndex) volumeAt(price int64) int64 {
	if lvl, ok := ix.levels[price]; ok {
		return lvl.volume
	}
	return 0
}
