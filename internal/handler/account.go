package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
	orderSvc   *service.OrderService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService, orderSvc *service.OrderService) *AccountHandler {
	return &AccountHandler{
		accountSvc: accountSvc,
		orderSvc:   orderSvc,
	}
}

// registerAccountRequest is the JSON request body for POST /accounts.
type registerAccountRequest struct {
	AccountID       string         `json:"account_id"`
	InitialCash     float64        `json:"initial_cash"`
	InitialHoldings []holdingInput `json:"initial_holdings"`
}

// holdingInput is a single holding in the registration request.
type holdingInput struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// accountResponse is the JSON response for POST /accounts (201 Created).
type accountResponse struct {
	AccountID   string            `json:"account_id"`
	CashBalance float64           `json:"cash_balance"`
	Holdings    []holdingResponse `json:"holdings"`
	CreatedAt   string            `json:"created_at"`
}

// holdingResponse is a single holding in the account response.
type holdingResponse struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// balanceResponse is the JSON response for GET /accounts/{account_id}/balance.
type balanceResponse struct {
	AccountID     string                   `json:"account_id"`
	CashBalance   float64                  `json:"cash_balance"`
	ReservedCash  float64                  `json:"reserved_cash"`
	AvailableCash float64                  `json:"available_cash"`
	Holdings      []holdingBalanceResponse `json:"holdings"`
}

// holdingBalanceResponse is a single holding in the balance response.
type holdingBalanceResponse struct {
	Symbol            string `json:"symbol"`
	Quantity          int64  `json:"quantity"`
	ReservedQuantity  int64  `json:"reserved_quantity"`
	AvailableQuantity int64  `json:"available_quantity"`
}

// listOrdersResponse is the JSON response for the order history listing.
type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// openOrdersResponse is the JSON response for the open-orders listing.
type openOrdersResponse struct {
	AccountID string   `json:"account_id"`
	OrderIDs  []uint64 `json:"order_ids"`
}

// Register handles POST /accounts.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	holdings := make([]service.HoldingInput, len(req.InitialHoldings))
	for i, hi := range req.InitialHoldings {
		holdings[i] = service.HoldingInput{Symbol: hi.Symbol, Quantity: hi.Quantity}
	}

	account, err := h.accountSvc.Register(service.RegisterAccountRequest{
		AccountID:       req.AccountID,
		InitialCash:     req.InitialCash,
		InitialHoldings: holdings,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := accountResponse{
		AccountID:   account.AccountID,
		CashBalance: domain.CentsToDollars(account.CashBalance),
		Holdings:    make([]holdingResponse, 0, len(account.Holdings)),
		CreatedAt:   account.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	for symbol, holding := range account.Holdings {
		resp.Holdings = append(resp.Holdings, holdingResponse{
			Symbol:   symbol,
			Quantity: holding.Quantity,
		})
	}

	WriteJSON(w, http.StatusCreated, resp)
}

// GetBalance handles GET /accounts/{account_id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	balance, err := h.accountSvc.GetBalance(accountID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := balanceResponse{
		AccountID:     balance.AccountID,
		CashBalance:   domain.CentsToDollars(balance.CashBalance),
		ReservedCash:  domain.CentsToDollars(balance.ReservedCash),
		AvailableCash: domain.CentsToDollars(balance.AvailableCash),
		Holdings:      make([]holdingBalanceResponse, 0, len(balance.Holdings)),
	}
	for _, hb := range balance.Holdings {
		resp.Holdings = append(resp.Holdings, holdingBalanceResponse{
			Symbol:            hb.Symbol,
			Quantity:          hb.Quantity,
			ReservedQuantity:  hb.ReservedQuantity,
			AvailableQuantity: hb.AvailableQuantity,
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}

// ListOrders handles GET /accounts/{account_id}/orders. With open=true it
// returns the account's open order ids in submission order; otherwise it
// returns a paginated history with optional status filtering.
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	q := r.URL.Query()

	if q.Get("open") == "true" {
		ids, err := h.orderSvc.OpenOrders(accountID)
		if err != nil {
			mapDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, openOrdersResponse{
			AccountID: accountID,
			OrderIDs:  ids,
		})
		return
	}

	page := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be an integer")
			return
		}
		page = p
	}

	limit := 20
	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be an integer")
			return
		}
		limit = l
	}

	var status *domain.OrderStatus
	if v := q.Get("status"); v != "" {
		s := domain.OrderStatus(v)
		status = &s
	}

	orders, total, err := h.orderSvc.ListOrders(accountID, status, page, limit)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := listOrdersResponse{
		Orders: make([]orderResponse, len(orders)),
		Total:  total,
		Page:   page,
		Limit:  limit,
	}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}

	WriteJSON(w, http.StatusOK, resp)
}
