package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	Kind      string   `json:"kind"`
	AccountID string   `json:"account_id"`
	Side      string   `json:"side"`
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Quantity  int64    `json:"quantity"`
}

// orderResponse is the JSON response for order endpoints. Price is
// omitted for market orders.
type orderResponse struct {
	OrderID      uint64          `json:"order_id"`
	Kind         string          `json:"kind"`
	AccountID    string          `json:"account_id"`
	Side         string          `json:"side"`
	Symbol       string          `json:"symbol"`
	Price        *float64        `json:"price,omitempty"`
	Quantity     int64           `json:"quantity"`
	Filled       int64           `json:"filled"`
	Remaining    int64           `json:"remaining"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"created_at"`
	CancelledAt  *string         `json:"cancelled_at"`
	AveragePrice *float64        `json:"average_price"`
	Trades       []tradeResponse `json:"trades"`
}

// tradeResponse is a single trade in the order response.
type tradeResponse struct {
	TradeID     uint64  `json:"trade_id"`
	BuyOrderID  uint64  `json:"buy_order_id"`
	SellOrderID uint64  `json:"sell_order_id"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	ExecutedAt  string  `json:"executed_at"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		Kind:      domain.OrderKind(req.Kind),
		AccountID: req.AccountID,
		Side:      domain.OrderSide(req.Side),
		Symbol:    req.Symbol,
		Price:     req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return
	}

	order, err := h.orderSvc.GetOrder(orderID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_id}?account_id=. The
// account_id query parameter identifies the requester for the owner
// check.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return
	}

	requester := r.URL.Query().Get("account_id")
	if requester == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "account_id query parameter is required")
		return
	}

	order, err := h.orderSvc.CancelOrder(orderID, requester)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

func parseOrderID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
}

// buildOrderResponse converts a domain order to its JSON form. Market
// orders omit price.
func buildOrderResponse(o *domain.Order) orderResponse {
	var avgPrice *float64
	if avg, ok := o.AveragePrice(); ok {
		v := domain.CentsToDollars(avg)
		avgPrice = &v
	}

	resp := orderResponse{
		OrderID:      o.ID,
		Kind:         string(o.Kind),
		AccountID:    o.AccountID,
		Side:         string(o.Side),
		Symbol:       o.Symbol,
		Quantity:     o.Quantity,
		Filled:       o.Filled,
		Remaining:    o.Remaining(),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		AveragePrice: avgPrice,
		Trades:       buildTradeResponses(o.Trades),
	}

	if o.Kind == domain.OrderKindLimit {
		p := domain.CentsToDollars(o.Price)
		resp.Price = &p
	}
	if o.CancelledAt != nil {
		s := o.CancelledAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.CancelledAt = &s
	}

	return resp
}

// buildTradeResponses converts domain trades to response trades.
func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:     t.ID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       domain.CentsToDollars(t.Price),
			Quantity:    t.Quantity,
			ExecutedAt:  t.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return result
}
