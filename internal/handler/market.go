package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/engine"
	"github.com/dspereira/openbook/internal/service"
)

// MarketHandler handles HTTP requests for market endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// tickerResponse is the JSON response for GET /markets/{symbol}/ticker.
type tickerResponse struct {
	Symbol      string   `json:"symbol"`
	BestBid     *float64 `json:"best_bid"`
	BestAsk     *float64 `json:"best_ask"`
	Spread      float64  `json:"spread"`
	LastPrice   *float64 `json:"last_price"`
	LastTradeAt *string  `json:"last_trade_at"`
}

// bookLevelResponse is a single price level in book/quote responses.
type bookLevelResponse struct {
	Price      float64 `json:"price"`
	Volume     int64   `json:"volume"`
	OrderCount int     `json:"order_count"`
}

// bookResponse is the JSON response for GET /markets/{symbol}/book.
type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     float64             `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// tradesResponse is the JSON response for GET /markets/{symbol}/trades.
type tradesResponse struct {
	Symbol string          `json:"symbol"`
	Trades []tradeResponse `json:"trades"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// quoteResponse is the JSON response for GET /markets/{symbol}/quote.
type quoteResponse struct {
	Symbol            string              `json:"symbol"`
	Side              string              `json:"side"`
	QuantityRequested int64               `json:"quantity_requested"`
	QuantityAvailable int64               `json:"quantity_available"`
	FullyFillable     bool                `json:"fully_fillable"`
	EstimatedAvgPrice *float64            `json:"estimated_average_price"`
	EstimatedTotal    *float64            `json:"estimated_total"`
	PriceLevels       []bookLevelResponse `json:"price_levels"`
	QuotedAt          string              `json:"quoted_at"`
}

// GetTicker handles GET /markets/{symbol}/ticker.
func (h *MarketHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	ticker, err := h.marketSvc.Ticker(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := tickerResponse{
		Symbol: ticker.Symbol,
		Spread: domain.CentsToDollars(ticker.Spread),
	}
	if ticker.BestBid != nil {
		v := domain.CentsToDollars(*ticker.BestBid)
		resp.BestBid = &v
	}
	if ticker.BestAsk != nil {
		v := domain.CentsToDollars(*ticker.BestAsk)
		resp.BestAsk = &v
	}
	if ticker.LastPrice != nil {
		v := domain.CentsToDollars(*ticker.LastPrice)
		resp.LastPrice = &v
	}
	if ticker.LastTradeAt != nil {
		s := ticker.LastTradeAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.LastTradeAt = &s
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /markets/{symbol}/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	depth := 10
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be an integer")
			return
		}
		depth = d
	}

	book, err := h.marketSvc.Book(symbol, depth)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Symbol:     book.Symbol,
		Bids:       buildLevelResponses(book.Bids),
		Asks:       buildLevelResponses(book.Asks),
		Spread:     domain.CentsToDollars(book.Spread),
		SnapshotAt: book.SnapshotAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// GetTrades handles GET /markets/{symbol}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be an integer")
			return
		}
		page = p
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be an integer")
			return
		}
		limit = l
	}

	trades, total, err := h.marketSvc.Trades(symbol, page, limit)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradesResponse{
		Symbol: symbol,
		Trades: buildTradeResponses(trades),
		Total:  total,
		Page:   page,
		Limit:  limit,
	})
}

// GetQuote handles GET /markets/{symbol}/quote?side=&quantity=.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q := r.URL.Query()

	side := domain.OrderSide(q.Get("side"))

	quantity, err := strconv.ParseInt(q.Get("quantity"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be a positive integer")
		return
	}

	quote, err := h.marketSvc.Quote(symbol, side, quantity)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := quoteResponse{
		Symbol:            quote.Symbol,
		Side:              string(quote.Side),
		QuantityRequested: quote.QuantityRequested,
		QuantityAvailable: quote.QuantityAvailable,
		FullyFillable:     quote.FullyFillable,
		PriceLevels:       buildLevelResponses(quote.PriceLevels),
		QuotedAt:          quote.QuotedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if quote.EstimatedAvgPrice != nil {
		v := domain.CentsToDollars(*quote.EstimatedAvgPrice)
		resp.EstimatedAvgPrice = &v
	}
	if quote.EstimatedTotal != nil {
		v := domain.CentsToDollars(*quote.EstimatedTotal)
		resp.EstimatedTotal = &v
	}

	WriteJSON(w, http.StatusOK, resp)
}

// buildLevelResponses converts engine price levels to response levels.
func buildLevelResponses(levels []engine.PriceLevel) []bookLevelResponse {
	out := make([]bookLevelResponse, len(levels))
	for i, lvl := range levels {
		out[i] = bookLevelResponse{
			Price:      domain.CentsToDollars(lvl.Price),
			Volume:     lvl.Volume,
			OrderCount: lvl.Orders,
		}
	}
	return out
}
