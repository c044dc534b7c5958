package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/events"
)

func TestDepthPublisher_PublishesSnapshots(t *testing.T) {
	m, as, _, _ := newTestMatcher()
	registerAccount(as, "buyer", 1000000, nil)
	registerAccount(as, "seller", 0, map[string]*domain.Holding{"AAPL": {Quantity: 5}})

	if _, _, err := m.SubmitOrder(newLimitOrder("buyer", domain.OrderSideBuy, "AAPL", 9900, 3)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.SubmitOrder(newLimitOrder("seller", domain.OrderSideSell, "AAPL", 10100, 5)); err != nil {
		t.Fatal(err)
	}

	feed := events.NewMemoryFeed()
	p := NewDepthPublisher(5*time.Millisecond, 10, m.Books(), feed)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	deadline := time.After(2 * time.Second)
	for len(feed.Events()) == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("no snapshot published within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	evt := feed.Events()[0]
	if evt.Type != domain.EventDepthSnapshot {
		t.Fatalf("expected depth.snapshot, got %s", evt.Type)
	}
	if evt.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", evt.Symbol)
	}
	if len(evt.Bids) != 1 || evt.Bids[0].Price != 9900 || evt.Bids[0].Volume != 3 {
		t.Errorf("unexpected bids %+v", evt.Bids)
	}
	if len(evt.Asks) != 1 || evt.Asks[0].Price != 10100 || evt.Asks[0].Volume != 5 {
		t.Errorf("unexpected asks %+v", evt.Asks)
	}
}

func TestDepthPublisher_StopsOnCancel(t *testing.T) {
	m, _, _, _ := newTestMatcher()
	feed := events.NewMemoryFeed()
	p := NewDepthPublisher(time.Millisecond, 5, m.Books(), feed)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	// After cancellation the publisher must go quiet.
	time.Sleep(10 * time.Millisecond)
	n := len(feed.Events())
	time.Sleep(20 * time.Millisecond)
	if got := len(feed.Events()); got != n {
		t.Errorf("expected no publishes after cancel, got %d new", got-n)
	}
}
