package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementDeposit MovementType = "deposit"
	MovementRelease MovementType = "release"
)

// Movement is an immutable record of money entering or leaving an escrow (cold data)
type Movement struct {
	Id            string          `db:"id"`
	EscrowId      string          `db:"escrow_id"`
	MovementType  MovementType    `db:"movement_type"`
	Amount        decimal.Decimal `db:"amount"` // signed: deposits positive, releases negative
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Currency      string          `db:"currency"`
	Reference     string          `db:"reference"` // fund or release id
	Counterparty  string          `db:"counterparty"`
	CreatedAt     time.Time       `db:"created_at"`
}

// JournalEntry is one leg of the double-entry record for a movement
type JournalEntry struct {
	Id           string          `db:"id"`
	MovementId   string          `db:"movement_id"`
	AccountType  string          `db:"account_type"`
	AccountId    string          `db:"account_id"`
	DebitAmount  decimal.Decimal `db:"debit_amount"`
	CreditAmount decimal.Decimal `db:"credit_amount"`
	CreatedAt    time.Time       `db:"created_at"`
}
