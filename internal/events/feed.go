// Package events delivers engine notifications to external observers.
// Notifications are produced by the matcher while the book lock is held
// and published here after the lock is released; nothing in this package
// feeds back into matching.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dspereira/openbook/internal/domain"
)

// Feed publishes notification events to an external market-data consumer.
type Feed interface {
	Publish(ctx context.Context, evts ...domain.Event) error
	Close() error
}

// LogFeed writes every event to structured logs. It is the default feed
// when no Kafka brokers are configured.
type LogFeed struct {
	logger *slog.Logger
}

// NewLogFeed creates a LogFeed on the given logger.
func NewLogFeed(logger *slog.Logger) *LogFeed {
	return &LogFeed{logger: logger}
}

// Publish logs each event at debug level.
func (f *LogFeed) Publish(_ context.Context, evts ...domain.Event) error {
	for _, e := range evts {
		f.logger.Debug("event",
			slog.String("type", string(e.Type)),
			slog.String("symbol", e.Symbol),
			slog.Uint64("order_id", e.OrderID),
			slog.Int64("price", e.Price),
			slog.Int64("quantity", e.Quantity),
		)
	}
	return nil
}

// Close is a no-op for LogFeed.
func (f *LogFeed) Close() error {
	return nil
}

// MemoryFeed collects events in memory. Used in tests to assert on
// emission order and payloads.
type MemoryFeed struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewMemoryFeed creates an empty MemoryFeed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{}
}

// Publish appends the events in order.
func (f *MemoryFeed) Publish(_ context.Context, evts ...domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evts...)
	return nil
}

// Events returns a copy of everything published so far.
func (f *MemoryFeed) Events() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, len(f.events))
	copy(out, f.events)
	return out
}

// Close is a no-op for MemoryFeed.
func (f *MemoryFeed) Close() error {
	return nil
}
