package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(id, txId string) *models.EscrowAccount {
	return &models.EscrowAccount{
		Id:            id,
		TransactionId: txId,
		Status:        models.EscrowStatusCreated,
		Balance:       decimal.Zero,
		Currency:      "EUR",
		Participants:  []models.Participant{{Id: "p1", Type: models.ParticipantBuyer}},
		CreatedAt:     time.Now(),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	account := newAccount("esc-1", "tx-1")
	require.NoError(t, s.CreateAccount(ctx, account))
	assert.Equal(t, int64(1), account.Version)

	got, err := s.GetAccount(ctx, "esc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.TransactionId)

	// Mutating the returned copy must not leak into the store.
	got.Participants[0].Name = "changed"
	again, err := s.GetAccount(ctx, "esc-1")
	require.NoError(t, err)
	assert.Empty(t, again.Participants[0].Name)

	err = s.CreateAccount(ctx, newAccount("esc-1", "tx-1"))
	assert.True(t, errors.Is(err, ErrDuplicateAccount))
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetAccount(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestMemoryStore_SaveOptimisticVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, newAccount("esc-1", "tx-1")))

	first, err := s.GetAccount(ctx, "esc-1")
	require.NoError(t, err)
	second, err := s.GetAccount(ctx, "esc-1")
	require.NoError(t, err)

	first.Balance = decimal.NewFromInt(100)
	require.NoError(t, s.SaveAccount(ctx, first, models.Movement{Id: "m1", EscrowId: "esc-1", Amount: decimal.NewFromInt(100)}))
	assert.Equal(t, int64(2), first.Version)

	second.Balance = decimal.NewFromInt(50)
	err = s.SaveAccount(ctx, second)
	assert.True(t, errors.Is(err, ErrConcurrentModification))

	stored, err := s.GetAccount(ctx, "esc-1")
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))

	movements, err := s.GetMovements(ctx, "esc-1")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestMemoryStore_ListByTransaction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := newAccount("esc-a", "tx-1")
	b := newAccount("esc-b", "tx-1")
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	require.NoError(t, s.CreateAccount(ctx, b))
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, newAccount("esc-c", "tx-2")))

	accounts, err := s.ListByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "esc-a", accounts[0].Id)
	assert.Equal(t, "esc-b", accounts[1].Id)

	none, err := s.ListByTransaction(ctx, "tx-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}
