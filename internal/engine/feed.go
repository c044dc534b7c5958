package engine

import (
	"context"
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/events"
)

// DepthPublisher periodically publishes top-of-book depth snapshots for
// every active market to the market-data feed. Snapshots are taken under
// each book's read lock, so they are always internally consistent.
type DepthPublisher struct {
	interval time.Duration
	depth    int
	books    *BookManager
	feed     events.Feed
}

// NewDepthPublisher creates a DepthPublisher with the given cadence and
// per-side level count.
func NewDepthPublisher(interval time.Duration, depth int, books *BookManager, feed events.Feed) *DepthPublisher {
	return &DepthPublisher{
		interval: interval,
		depth:    depth,
		books:    books,
		feed:     feed,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and publishes one snapshot per market. It stops when ctx is
// cancelled.
func (p *DepthPublisher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				p.tick(ctx, t)
			}
		}
	}()
}

// tick snapshots every market with a book and publishes the batch.
func (p *DepthPublisher) tick(ctx context.Context, now time.Time) {
	for _, symbol := range p.books.Symbols() {
		book, ok := p.books.Get(symbol)
		if !ok {
			continue
		}
		bids, asks := book.Depth(p.depth)
		_ = p.feed.Publish(ctx, domain.Event{
			Type:   domain.EventDepthSnapshot,
			Symbol: symbol,
			Bids:   levelViews(bids),
			Asks:   levelViews(asks),
			At:     now,
		})
	}
}

func levelViews(levels []PriceLevel) []domain.LevelView {
	out := make([]domain.LevelView, len(levels))
	for i, lvl := range levels {
		out[i] = domain.LevelView{Price: lvl.Price, Volume: lvl.Volume, Orders: lvl.Orders}
	}
	return out
}
