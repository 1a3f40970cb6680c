package store

import (
	"context"
	"errors"

	"propie-escrow-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrAccountNotFound        = errors.New("escrow account not found")
	ErrDuplicateAccount       = errors.New("duplicate escrow account")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// EscrowStore defines the contract that every backend (SQLite, in-memory, ...) must satisfy.
// Accounts are handed over and returned as copies; a backend never retains a caller's pointer.
type EscrowStore interface {
	// --- Accounts ---
	CreateAccount(ctx context.Context, account *models.EscrowAccount) error
	GetAccount(ctx context.Context, escrowId string) (*models.EscrowAccount, error)
	ListByTransaction(ctx context.Context, transactionId string) ([]*models.EscrowAccount, error)

	// SaveAccount persists account if its Version still matches the stored one,
	// appending movements in the same unit of work. On success account.Version is
	// incremented; on a version mismatch ErrConcurrentModification is returned.
	SaveAccount(ctx context.Context, account *models.EscrowAccount, movements ...models.Movement) error

	// --- Movements ---
	GetMovements(ctx context.Context, escrowId string) ([]models.Movement, error)

	// --- Lifecycle ---
	Close()
}
