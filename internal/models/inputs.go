package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateAccountInput carries the prototypes of an escrow account. Prototypes
// have no ids; cross references between them use caller-chosen keys.
type CreateAccountInput struct {
	TransactionId string             `json:"transaction_id"`
	PropertyId    string             `json:"property_id"`
	Currency      string             `json:"currency"`
	Participants  []ParticipantInput `json:"participants"`
	Conditions    []ConditionInput   `json:"conditions"`
	Milestones    []MilestoneInput   `json:"milestones"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

type ParticipantInput struct {
	Key               string          `json:"key"`
	Type              ParticipantType `json:"type"`
	Name              string          `json:"name"`
	Email             string          `json:"email,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Role              ParticipantRole `json:"role"`
	Permissions       []Permission    `json:"permissions"`
	SignatureRequired bool            `json:"signature_required"`
}

type ConditionInput struct {
	Key               string        `json:"key"`
	Type              ConditionType `json:"type"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Priority          Priority      `json:"priority,omitempty"`
	RequiredApprovers []string      `json:"required_approvers,omitempty"`
	DueDate           *time.Time    `json:"due_date,omitempty"`
}

type MilestoneInput struct {
	Key               string          `json:"key"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Order             int             `json:"order"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	ReleaseAmount     decimal.Decimal `json:"release_amount"`
	ReleasePercentage decimal.Decimal `json:"release_percentage"`
	Conditions        []string        `json:"conditions"`
	Dependencies      []string        `json:"dependencies,omitempty"`
	Participants      []string        `json:"participants,omitempty"`
}

type DepositInput struct {
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Source            FundSource        `json:"source"`
	DepositedBy       string            `json:"deposited_by"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Purpose           string            `json:"purpose"`
	ReleaseConditions []string          `json:"release_conditions,omitempty"`
	Reference         string            `json:"reference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type VerifyConditionInput struct {
	VerifiedBy string   `json:"verified_by"`
	Documents  []string `json:"documents,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

type ReleaseRequestInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient"`
	Reason      string          `json:"reason"`
	RequestedBy string          `json:"requested_by"`
	MilestoneId string          `json:"milestone_id,omitempty"`
	FundIds     []string        `json:"fund_ids,omitempty"`
}

type ApprovalInput struct {
	ApprovedBy    string `json:"approved_by"`
	ParticipantId string `json:"participant_id"`
	Notes         string `json:"notes,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

// CloseInput is used for disputes, cancellations and expiry
type CloseInput struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}
