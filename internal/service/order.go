package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/engine"
	"github.com/dspereira/openbook/internal/events"
	"github.com/dspereira/openbook/internal/store"
)

var (
	accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex    = regexp.MustCompile(`^[A-Z]{1,10}$`)
)

// ValidOrderStatuses lists all valid order status values for filtering.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusActive:    true,
	domain.OrderStatusFilled:    true,
	domain.OrderStatusCancelled: true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	Kind      domain.OrderKind
	AccountID string
	Side      domain.OrderSide
	Symbol    string
	Price     *float64 // required for limit, must be nil for market
	Quantity  int64
}

// OrderService handles order submission, retrieval, cancellation, and
// listing, and relays engine notifications to the webhook dispatcher and
// the market-data feed after each operation commits.
type OrderService struct {
	matcher    *engine.Matcher
	accounts   *store.AccountStore
	orders     *store.OrderStore
	webhookSvc *WebhookService
	feed       events.Feed
}

// NewOrderService creates an OrderService with the given dependencies.
func NewOrderService(
	matcher *engine.Matcher,
	accounts *store.AccountStore,
	orders *store.OrderStore,
	webhookSvc *WebhookService,
	feed events.Feed,
) *OrderService {
	return &OrderService{
		matcher:    matcher,
		accounts:   accounts,
		orders:     orders,
		webhookSvc: webhookSvc,
		feed:       feed,
	}
}

// SubmitOrder validates the request, runs the matching engine, and
// relays the resulting notifications. A rejected submission allocates no
// order id and emits nothing.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Kind != domain.OrderKindLimit && req.Kind != domain.OrderKindMarket {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order kind: %s. Must be one of: limit, market", req.Kind),
		}
	}
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must match ^[A-Z]{1,10}$",
		}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	if req.Kind == domain.OrderKindLimit {
		return s.submitLimitOrder(req)
	}
	return s.submitMarketOrder(req)
}

func (s *OrderService) submitLimitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Price == nil {
		return nil, &domain.ValidationError{
			Message: "price is required for limit orders",
		}
	}
	if *req.Price <= 0 {
		return nil, &domain.ValidationError{
			Message: "price must be greater than 0",
		}
	}
	priceCents, err := domain.DollarsToCents(*req.Price)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: "price must have at most 2 decimal places",
		}
	}

	if !s.accounts.Exists(req.AccountID) {
		return nil, domain.ErrAccountNotFound
	}

	order := &domain.Order{
		Kind:      domain.OrderKindLimit,
		AccountID: req.AccountID,
		Side:      req.Side,
		Symbol:    req.Symbol,
		Price:     priceCents,
		Quantity:  req.Quantity,
	}

	_, evts, err := s.matcher.SubmitOrder(order)
	if err != nil {
		return nil, err
	}

	s.dispatch(evts)
	return order, nil
}

func (s *OrderService) submitMarketOrder(req SubmitOrderRequest) (*domain.Order, error) {
	// Market orders must not include a price.
	if req.Price != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include price",
		}
	}

	if !s.accounts.Exists(req.AccountID) {
		return nil, domain.ErrAccountNotFound
	}

	order := &domain.Order{
		Kind:      domain.OrderKindMarket,
		AccountID: req.AccountID,
		Side:      req.Side,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
	}

	_, evts, err := s.matcher.SubmitOrder(order)
	if err != nil {
		return nil, err
	}

	s.dispatch(evts)
	return order, nil
}

// dispatch relays committed notifications to the webhook subscribers and
// the market-data feed, outside the book lock, in emission order.
func (s *OrderService) dispatch(evts []domain.Event) {
	if len(evts) == 0 {
		return
	}
	if s.webhookSvc != nil {
		s.webhookSvc.Dispatch(evts)
	}
	if s.feed != nil {
		_ = s.feed.Publish(context.Background(), evts...)
	}
}

// GetOrder retrieves an order by id with all its trades.
func (s *OrderService) GetOrder(orderID uint64) (*domain.Order, error) {
	return s.orders.Get(orderID)
}

// CancelOrder cancels an active order on behalf of requester.
func (s *OrderService) CancelOrder(orderID uint64, requester string) (*domain.Order, error) {
	if !accountIDRegex.MatchString(requester) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	order, evts, err := s.matcher.Cancel(orderID, requester)
	if err != nil {
		return nil, err
	}

	s.dispatch(evts)
	return order, nil
}

// OpenOrders returns the account's open order ids in submission order.
func (s *OrderService) OpenOrders(accountID string) ([]uint64, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.orders.OpenOrders(accountID), nil
}

// ListOrders returns a paginated list of an account's orders with
// optional status filtering.
func (s *OrderService) ListOrders(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	if !s.accounts.Exists(accountID) {
		return nil, 0, domain.ErrAccountNotFound
	}

	if status != nil {
		if !ValidOrderStatuses[*status] {
			return nil, 0, &domain.ValidationError{
				Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: active, filled, cancelled", *status),
			}
		}
	}

	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.orders.ListByAccount(accountID, status, page, limit)
	return orders, total, nil
}
