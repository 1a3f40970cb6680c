package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest asks the payment collaborator to move released money to a participant
type PaymentRequest struct {
	EscrowId      string
	TransactionId string
	ReleaseId     string
	Recipient     Participant
	Amount        decimal.Decimal
	Currency      string
	Reason        string
}

type PaymentResult struct {
	Reference  string
	ExecutedAt time.Time
}
