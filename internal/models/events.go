package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventAccountCreated     EventType = "ACCOUNT_CREATED"
	EventFundsDeposited     EventType = "FUNDS_DEPOSITED"
	EventConditionMet       EventType = "CONDITION_MET"
	EventMilestoneCompleted EventType = "MILESTONE_COMPLETED"
	EventReleaseRequested   EventType = "RELEASE_REQUESTED"
	EventReleaseApproved    EventType = "RELEASE_APPROVED"
	EventFundsReleased      EventType = "FUNDS_RELEASED"
	EventDisputeRaised      EventType = "DISPUTE_RAISED"
	EventEscrowCompleted    EventType = "ESCROW_COMPLETED"
	EventEscrowCancelled    EventType = "ESCROW_CANCELLED"
	EventEscrowExpired      EventType = "ESCROW_EXPIRED"
)

// EscrowEvent is dispatched to notifiers once the mutation that produced it has been stored
type EscrowEvent struct {
	Id            string          `json:"id"`
	Type          EventType       `json:"type"`
	EscrowId      string          `json:"escrow_id"`
	TransactionId string          `json:"transaction_id"`
	EntityType    string          `json:"entity_type"`
	EntityId      string          `json:"entity_id"`
	Actor         string          `json:"actor,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Account       *EscrowAccount  `json:"account,omitempty"`
}
