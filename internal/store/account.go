package store

import (
	"sync"

	"github.com/dspereira/openbook/internal/domain"
)

// AccountStore is the in-process custody collaborator: a thread-safe
// map of account_id → account balances. The engine only touches it
// through reservation, settlement, and release of cash and holdings, so a
// remote custody service can stand in behind the same call sites.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*domain.Account),
	}
}

// Create adds an account. It returns domain.ErrAccountAlreadyExists if an
// account with the same id already exists.
func (s *AccountStore) Create(a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.AccountID]; exists {
		return domain.ErrAccountAlreadyExists
	}
	s.accounts[a.AccountID] = a
	return nil
}

// Get retrieves an account by id. It returns domain.ErrAccountNotFound if
// the account does not exist.
func (s *AccountStore) Get(id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

// Exists returns true if an account with the given id exists.
func (s *AccountStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[id]
	return ok
}
