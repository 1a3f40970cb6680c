package models

import "github.com/shopspring/decimal"

// EscrowSummary is the derived aggregate shown on escrow dashboards
type EscrowSummary struct {
	EscrowId            string          `json:"escrow_id"`
	Status              EscrowStatus    `json:"status"`
	Currency            string          `json:"currency"`
	Balance             decimal.Decimal `json:"balance"`
	TotalDeposited      decimal.Decimal `json:"total_deposited"`
	TotalReleased       decimal.Decimal `json:"total_released"`
	PendingReleases     decimal.Decimal `json:"pending_releases"`
	ConditionsMet       int             `json:"conditions_met"`
	TotalConditions     int             `json:"total_conditions"`
	MilestonesCompleted int             `json:"milestones_completed"`
	TotalMilestones     int             `json:"total_milestones"`
}

// BalanceReconciliation compares the stored running balance with the balance
// recomputed from fund consumption and from the movement journal
type BalanceReconciliation struct {
	EscrowId       string          `json:"escrow_id"`
	StoredBalance  decimal.Decimal `json:"stored_balance"`
	FundBalance    decimal.Decimal `json:"fund_balance"`
	JournalBalance decimal.Decimal `json:"journal_balance"`
	Balanced       bool            `json:"balanced"`
}
