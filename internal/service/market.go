package service

import (
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/engine"
	"github.com/dspereira/openbook/internal/store"
)

// TickerResponse represents the response for GET /markets/{symbol}/ticker.
type TickerResponse struct {
	Symbol      string
	BestBid     *int64 // nil when no bids rest
	BestAsk     *int64 // nil when no asks rest
	Spread      int64  // 0 if either side empty
	LastPrice   *int64 // nil before the first trade
	LastTradeAt *time.Time
}

// BookResponse represents the response for GET /markets/{symbol}/book.
type BookResponse struct {
	Symbol     string
	Bids       []engine.PriceLevel
	Asks       []engine.PriceLevel
	Spread     int64
	SnapshotAt time.Time
}

// QuoteResponse represents the response for GET /markets/{symbol}/quote.
type QuoteResponse struct {
	Symbol            string
	Side              domain.OrderSide
	QuantityRequested int64
	QuantityAvailable int64
	FullyFillable     bool
	EstimatedAvgPrice *int64
	EstimatedTotal    *int64
	PriceLevels       []engine.PriceLevel
	QuotedAt          time.Time
}

// MarketService handles the read-only market endpoints: ticker, depth,
// trades, and quote simulation.
type MarketService struct {
	ledger  *store.TradeLedger
	books   *engine.BookManager
	matcher *engine.Matcher
	symbols *domain.SymbolRegistry
}

// NewMarketService creates a MarketService with the given dependencies.
func NewMarketService(
	ledger *store.TradeLedger,
	books *engine.BookManager,
	matcher *engine.Matcher,
	symbols *domain.SymbolRegistry,
) *MarketService {
	return &MarketService{
		ledger:  ledger,
		books:   books,
		matcher: matcher,
		symbols: symbols,
	}
}

// Ticker returns the best bid/ask, spread, and last traded price.
func (s *MarketService) Ticker(symbol string) (*TickerResponse, error) {
	if !s.symbols.Exists(symbol) {
		return nil, domain.ErrSymbolNotFound
	}
	book := s.books.GetOrCreate(symbol)

	resp := &TickerResponse{
		Symbol: symbol,
		Spread: book.Spread(),
	}
	if bid, ok := book.BestBid(); ok {
		resp.BestBid = &bid
	}
	if ask, ok := book.BestAsk(); ok {
		resp.BestAsk = &ask
	}
	if ltp, ok := book.LastPrice(); ok {
		resp.LastPrice = &ltp
	}
	if at, ok := book.LastTradeAt(); ok {
		resp.LastTradeAt = &at
	}
	return resp, nil
}

// Book returns up to depth aggregated levels per side from the best
// anchor inward, as one consistent snapshot.
func (s *MarketService) Book(symbol string, depth int) (*BookResponse, error) {
	if !s.symbols.Exists(symbol) {
		return nil, domain.ErrSymbolNotFound
	}
	if depth < 1 || depth > 100 {
		return nil, &domain.ValidationError{
			Message: "depth must be between 1 and 100",
		}
	}

	book := s.books.GetOrCreate(symbol)
	bids, asks := book.Depth(depth)

	return &BookResponse{
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		Spread:     book.Spread(),
		SnapshotAt: time.Now(),
	}, nil
}

// Levels returns up to max aggregated levels for one side.
func (s *MarketService) Levels(symbol string, side domain.OrderSide, max int) ([]engine.PriceLevel, error) {
	if !s.symbols.Exists(symbol) {
		return nil, domain.ErrSymbolNotFound
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return nil, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if max < 1 || max > 100 {
		return nil, &domain.ValidationError{Message: "max levels must be between 1 and 100"}
	}

	book := s.books.GetOrCreate(symbol)
	if side == domain.OrderSideBuy {
		return book.TopBids(max), nil
	}
	return book.TopAsks(max), nil
}

// Trades returns one page of the symbol's trade history plus the total
// count. The full history is reachable by paging to the end; that is the
// degraded path by design of the ledger.
func (s *MarketService) Trades(symbol string, page, limit int) ([]*domain.Trade, int, error) {
	if !s.symbols.Exists(symbol) {
		return nil, 0, domain.ErrSymbolNotFound
	}
	if page < 1 {
		return nil, 0, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{Message: "limit must be between 1 and 100"}
	}

	trades, total := s.ledger.BySymbol(symbol, page, limit)
	return trades, total, nil
}

// TradeCount returns the number of trades recorded for the symbol.
func (s *MarketService) TradeCount(symbol string) (int, error) {
	if !s.symbols.Exists(symbol) {
		return 0, domain.ErrSymbolNotFound
	}
	return s.ledger.Count(symbol), nil
}

// Quote simulates a market order against the current book without
// placing it.
func (s *MarketService) Quote(symbol string, side domain.OrderSide, quantity int64) (*QuoteResponse, error) {
	if !s.symbols.Exists(symbol) {
		return nil, domain.ErrSymbolNotFound
	}
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		return nil, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	result := s.matcher.Quote(symbol, side, quantity)

	return &QuoteResponse{
		Symbol:            symbol,
		Side:              side,
		QuantityRequested: quantity,
		QuantityAvailable: result.QuantityAvailable,
		FullyFillable:     result.FullyFillable,
		EstimatedAvgPrice: result.EstimatedAvgPrice,
		EstimatedTotal:    result.EstimatedTotal,
		PriceLevels:       result.PriceLevels,
		QuotedAt:          time.Now(),
	}, nil
}
