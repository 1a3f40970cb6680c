package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"propie-escrow-go/internal/models"
)

// Compile-time check: *MemoryStore must satisfy EscrowStore.
var _ EscrowStore = (*MemoryStore)(nil)

// MemoryStore keeps escrow accounts in process memory. It is meant for tests and
// single-process deployments where durability is not required.
type MemoryStore struct {
	mu        sync.RWMutex
	accounts  map[string]*models.EscrowAccount
	movements map[string][]models.Movement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]*models.EscrowAccount),
		movements: make(map[string][]models.Movement),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.EscrowAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.Id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, account.Id)
	}
	account.Version = 1
	s.accounts[account.Id] = account.Clone()
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, escrowId string) (*models.EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[escrowId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, escrowId)
	}
	return account.Clone(), nil
}

func (s *MemoryStore) ListByTransaction(_ context.Context, transactionId string) ([]*models.EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.EscrowAccount
	for _, account := range s.accounts {
		if account.TransactionId == transactionId {
			result = append(result, account.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, account *models.EscrowAccount, movements ...models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.Id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, account.Id)
	}
	if current.Version != account.Version {
		return fmt.Errorf("escrow %s at version %d, stored %d - %w",
			account.Id, account.Version, current.Version, ErrConcurrentModification)
	}

	account.Version++
	s.accounts[account.Id] = account.Clone()
	s.movements[account.Id] = append(s.movements[account.Id], movements...)
	return nil
}

func (s *MemoryStore) GetMovements(_ context.Context, escrowId string) ([]models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Movement(nil), s.movements[escrowId]...), nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() {}
