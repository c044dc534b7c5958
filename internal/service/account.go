package service

import (
	"fmt"
	"time"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/store"
)

// RegisterAccountRequest represents the input for account registration.
type RegisterAccountRequest struct {
	AccountID       string
	InitialCash     float64
	InitialHoldings []HoldingInput
}

// HoldingInput represents a single holding in a registration request.
type HoldingInput struct {
	Symbol   string
	Quantity int64
}

// BalanceResponse represents the response for the balance endpoint.
type BalanceResponse struct {
	AccountID     string
	CashBalance   int64
	ReservedCash  int64
	AvailableCash int64
	Holdings      []HoldingBalance
}

// HoldingBalance represents a single holding in the balance response.
type HoldingBalance struct {
	Symbol            string
	Quantity          int64
	ReservedQuantity  int64
	AvailableQuantity int64
}

// AccountService handles account registration and balance queries. It is
// the bootstrap surface for the in-process custody collaborator.
type AccountService struct {
	store   *store.AccountStore
	symbols *domain.SymbolRegistry
}

// NewAccountService creates a new AccountService.
func NewAccountService(store *store.AccountStore, symbols *domain.SymbolRegistry) *AccountService {
	return &AccountService{
		store:   store,
		symbols: symbols,
	}
}

// Register validates the request, creates an account with its initial
// balances, and registers the holding symbols.
func (s *AccountService) Register(req RegisterAccountRequest) (*domain.Account, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	if req.InitialCash < 0 {
		return nil, &domain.ValidationError{
			Message: "initial_cash must be >= 0",
		}
	}
	cashCents, err := domain.DollarsToCents(req.InitialCash)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: "initial_cash must have at most 2 decimal places",
		}
	}

	seen := make(map[string]bool)
	for _, h := range req.InitialHoldings {
		if !symbolRegex.MatchString(h.Symbol) {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("holding symbol must match ^[A-Z]{1,10}$, got %q", h.Symbol),
			}
		}
		if h.Quantity <= 0 {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("holding quantity must be > 0 for symbol %s", h.Symbol),
			}
		}
		if seen[h.Symbol] {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("duplicate symbol in initial_holdings: %s", h.Symbol),
			}
		}
		seen[h.Symbol] = true
	}

	holdings := make(map[string]*domain.Holding)
	for _, h := range req.InitialHoldings {
		holdings[h.Symbol] = &domain.Holding{
			Quantity: h.Quantity,
		}
	}

	account := &domain.Account{
		AccountID:   req.AccountID,
		CashBalance: cashCents,
		Holdings:    holdings,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Create(account); err != nil {
		return nil, err
	}

	for symbol := range holdings {
		s.symbols.Register(symbol)
	}

	return account, nil
}

// GetBalance retrieves the account's current balance including
// reservations.
func (s *AccountService) GetBalance(accountID string) (*BalanceResponse, error) {
	account, err := s.store.Get(accountID)
	if err != nil {
		return nil, err
	}

	account.Mu.Lock()
	defer account.Mu.Unlock()

	holdings := make([]HoldingBalance, 0, len(account.Holdings))
	for symbol, h := range account.Holdings {
		holdings = append(holdings, HoldingBalance{
			Symbol:            symbol,
			Quantity:          h.Quantity,
			ReservedQuantity:  h.ReservedQuantity,
			AvailableQuantity: h.Quantity - h.ReservedQuantity,
		})
	}

	return &BalanceResponse{
		AccountID:     account.AccountID,
		CashBalance:   account.CashBalance,
		ReservedCash:  account.ReservedCash,
		AvailableCash: account.CashBalance - account.ReservedCash,
		Holdings:      holdings,
	}, nil
}
