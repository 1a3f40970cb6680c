/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowStatus is the lifecycle state of an escrow account
type EscrowStatus string

const (
	EscrowStatusCreated           EscrowStatus = "CREATED"
	EscrowStatusFunded            EscrowStatus = "FUNDED"
	EscrowStatusActive            EscrowStatus = "ACTIVE"
	EscrowStatusConditionsMet     EscrowStatus = "CONDITIONS_MET"
	EscrowStatusReadyForRelease   EscrowStatus = "READY_FOR_RELEASE"
	EscrowStatusPartiallyReleased EscrowStatus = "PARTIALLY_RELEASED"
	EscrowStatusCompleted         EscrowStatus = "COMPLETED"
	EscrowStatusDisputed          EscrowStatus = "DISPUTED"
	EscrowStatusCancelled         EscrowStatus = "CANCELLED"
	EscrowStatusExpired           EscrowStatus = "EXPIRED"
)

// IsTerminal reports whether no further mutation is allowed in this state
func (s EscrowStatus) IsTerminal() bool {
	switch s {
	case EscrowStatusCompleted, EscrowStatusDisputed, EscrowStatusCancelled, EscrowStatusExpired:
		return true
	}
	return false
}

type ParticipantType string

const (
	ParticipantBuyer     ParticipantType = "buyer"
	ParticipantSeller    ParticipantType = "seller"
	ParticipantDeveloper ParticipantType = "developer"
	ParticipantAgent     ParticipantType = "agent"
	ParticipantSolicitor ParticipantType = "solicitor"
	ParticipantLender    ParticipantType = "lender"
	ParticipantPlatform  ParticipantType = "platform"
)

type ParticipantRole string

const (
	RoleDepositor     ParticipantRole = "depositor"
	RoleBeneficiary   ParticipantRole = "beneficiary"
	RoleApprover      ParticipantRole = "approver"
	RoleObserver      ParticipantRole = "observer"
	RoleAdministrator ParticipantRole = "administrator"
)

// Permission is a fine-grained capability held by a participant
type Permission string

const (
	PermissionViewDetails     Permission = "VIEW_DETAILS"
	PermissionDepositFunds    Permission = "DEPOSIT_FUNDS"
	PermissionRequestRelease  Permission = "REQUEST_RELEASE"
	PermissionApproveRelease  Permission = "APPROVE_RELEASE"
	PermissionUploadDocuments Permission = "UPLOAD_DOCUMENTS"
	PermissionRaiseDispute    Permission = "RAISE_DISPUTE"
	PermissionManageEscrow    Permission = "MANAGE_ESCROW"
)

type ConditionType string

const (
	ConditionDocumentUpload        ConditionType = "document_upload"
	ConditionSignatureRequired     ConditionType = "signature_required"
	ConditionPaymentConfirmation   ConditionType = "payment_confirmation"
	ConditionLegalApproval         ConditionType = "legal_approval"
	ConditionTitleVerification     ConditionType = "title_verification"
	ConditionInsuranceApproval     ConditionType = "insurance_approval"
	ConditionMortgageApproval      ConditionType = "mortgage_approval"
	ConditionHTBApproval           ConditionType = "htb_approval"
	ConditionConstructionMilestone ConditionType = "construction_milestone"
	ConditionTimeDelay             ConditionType = "time_delay"
	ConditionCustom                ConditionType = "custom"
)

type ConditionStatus string

const (
	ConditionPending ConditionStatus = "pending"
	ConditionMet     ConditionStatus = "met"
	ConditionFailed  ConditionStatus = "failed"
	ConditionWaived  ConditionStatus = "waived"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneFailed     MilestoneStatus = "failed"
)

// FundSource categorises where deposited money came from
type FundSource string

const (
	FundSourceBuyerDeposit          FundSource = "buyer_deposit"
	FundSourceContractualDeposit    FundSource = "contractual_deposit"
	FundSourceStagePayment          FundSource = "stage_payment"
	FundSourceHTBBenefit            FundSource = "htb_benefit"
	FundSourceMortgageDrawdown      FundSource = "mortgage_drawdown"
	FundSourceAgentCommission       FundSource = "agent_commission"
	FundSourceDeveloperContribution FundSource = "developer_contribution"
	FundSourceOther                 FundSource = "other"
)

type FundStatus string

const (
	FundDeposited FundStatus = "deposited"
	FundHeld      FundStatus = "held"
	FundReleased  FundStatus = "released"
	FundReturned  FundStatus = "returned"
	FundDisputed  FundStatus = "disputed"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentDirectDebit  PaymentMethod = "direct_debit"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentHTBScheme    PaymentMethod = "htb_scheme"
	PaymentOther        PaymentMethod = "other"
)

type ReleaseStatus string

const (
	ReleasePending  ReleaseStatus = "pending"
	ReleaseApproved ReleaseStatus = "approved"
	ReleaseReleased ReleaseStatus = "released"
	ReleaseFailed   ReleaseStatus = "failed"
)

// EscrowAccount is the aggregate root; it owns every other escrow record
type EscrowAccount struct {
	Id            string            `json:"id"`
	TransactionId string            `json:"transaction_id"`
	PropertyId    string            `json:"property_id"`
	Status        EscrowStatus      `json:"status"`
	Balance       decimal.Decimal   `json:"balance"`
	Currency      string            `json:"currency"`
	Participants  []Participant     `json:"participants"`
	Conditions    []Condition       `json:"conditions"`
	Milestones    []Milestone       `json:"milestones"`
	Funds         []Fund            `json:"funds"`
	Releases      []Release         `json:"releases"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ClosedAt      *time.Time        `json:"closed_at,omitempty"`
	ClosedReason  string            `json:"closed_reason,omitempty"`
}

type Participant struct {
	Id                string          `json:"id"`
	Key               string          `json:"key,omitempty"`
	Type              ParticipantType `json:"type"`
	Name              string          `json:"name"`
	Email             string          `json:"email,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Role              ParticipantRole `json:"role"`
	Permissions       []Permission    `json:"permissions"`
	SignatureRequired bool            `json:"signature_required"`
	// Approved is set once the participant has approved at least one release.
	// Gating is per release, see Release.HasApprovalFrom.
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// HasPermission reports whether the participant holds p
func (p Participant) HasPermission(perm Permission) bool {
	for _, held := range p.Permissions {
		if held == perm {
			return true
		}
	}
	return false
}

type Condition struct {
	Id                string          `json:"id"`
	Key               string          `json:"key,omitempty"`
	Type              ConditionType   `json:"type"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Status            ConditionStatus `json:"status"`
	Priority          Priority        `json:"priority"`
	RequiredApprovers []string        `json:"required_approvers,omitempty"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	Documents         []string        `json:"documents,omitempty"`
	VerifiedBy        string          `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

type Milestone struct {
	Id                string          `json:"id"`
	Key               string          `json:"key,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Status            MilestoneStatus `json:"status"`
	Order             int             `json:"order"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	ReleaseAmount     decimal.Decimal `json:"release_amount"`
	ReleasePercentage decimal.Decimal `json:"release_percentage"`
	Conditions        []string        `json:"conditions"`
	Dependencies      []string        `json:"dependencies,omitempty"`
	Participants      []string        `json:"participants,omitempty"`
}

type Fund struct {
	Id                string            `json:"id"`
	Amount            decimal.Decimal   `json:"amount"`
	ReleasedAmount    decimal.Decimal   `json:"released_amount"`
	Currency          string            `json:"currency"`
	Source            FundSource        `json:"source"`
	DepositedBy       string            `json:"deposited_by"`
	DepositedAt       time.Time         `json:"deposited_at"`
	Status            FundStatus        `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Reference         string            `json:"reference,omitempty"`
	Purpose           string            `json:"purpose,omitempty"`
	ReleaseConditions []string          `json:"release_conditions,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Available returns the part of the fund not yet consumed by releases
func (f Fund) Available() decimal.Decimal {
	if f.Status == FundReleased || f.Status == FundReturned {
		return decimal.Zero
	}
	return f.Amount.Sub(f.ReleasedAmount)
}

type Release struct {
	Id               string            `json:"id"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Recipient        string            `json:"recipient"`
	RequestedBy      string            `json:"requested_by"`
	RequestedAt      time.Time         `json:"requested_at"`
	Reason           string            `json:"reason"`
	MilestoneId      string            `json:"milestone_id,omitempty"`
	FundIds          []string          `json:"fund_ids,omitempty"`
	Approvals        []ReleaseApproval `json:"approvals"`
	Status           ReleaseStatus     `json:"status"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	ReleasedAt       *time.Time        `json:"released_at,omitempty"`
	Failure          *ReleaseFailure   `json:"failure,omitempty"`
	Automatic        bool              `json:"automatic"`
}

// HasApprovalFrom reports whether participantId already signed off
func (r Release) HasApprovalFrom(participantId string) bool {
	for _, a := range r.Approvals {
		if a.ParticipantId == participantId {
			return true
		}
	}
	return false
}

type ReleaseApproval struct {
	ParticipantId string    `json:"participant_id"`
	ApprovedBy    string    `json:"approved_by"`
	ApprovedAt    time.Time `json:"approved_at"`
	Notes         string    `json:"notes,omitempty"`
	Signature     string    `json:"signature,omitempty"`
}

// ReleaseFailure captures why a payment could not be executed
type ReleaseFailure struct {
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
