package escrow

import (
	"context"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RaiseDispute freezes the account. The actor must be a participant holding
// RAISE_DISPUTE, or the configured system actor.
func (l *Ledger) RaiseDispute(ctx context.Context, escrowId string, in models.CloseInput) (*models.EscrowAccount, error) {
	return l.close(ctx, escrowId, in, models.EscrowStatusDisputed, models.EventDisputeRaised, func(account *models.EscrowAccount) error {
		if in.Actor != l.cfg.SystemActor {
			idx := findParticipant(account, in.Actor)
			if idx < 0 {
				return notFound("participant", in.Actor)
			}
			if !account.Participants[idx].HasPermission(models.PermissionRaiseDispute) {
				return invalid("actor", "participant %s may not raise disputes", account.Participants[idx].Id)
			}
		}
		for i := range account.Funds {
			if account.Funds[i].Available().IsPositive() {
				account.Funds[i].Status = models.FundDisputed
			}
		}
		return nil
	})
}

func (l *Ledger) CancelEscrow(ctx context.Context, escrowId string, in models.CloseInput) (*models.EscrowAccount, error) {
	return l.close(ctx, escrowId, in, models.EscrowStatusCancelled, models.EventEscrowCancelled, nil)
}

func (l *Ledger) ExpireEscrow(ctx context.Context, escrowId string, in models.CloseInput) (*models.EscrowAccount, error) {
	return l.close(ctx, escrowId, in, models.EscrowStatusExpired, models.EventEscrowExpired, nil)
}

func (l *Ledger) close(
	ctx context.Context,
	escrowId string,
	in models.CloseInput,
	status models.EscrowStatus,
	eventType models.EventType,
	check func(account *models.EscrowAccount) error,
) (*models.EscrowAccount, error) {
	if in.Actor == "" {
		return nil, invalid("actor", "is required")
	}
	if in.Reason == "" {
		return nil, invalid("reason", "is required")
	}

	account, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		if check != nil {
			if err := check(account); err != nil {
				return err
			}
		}

		previous := account.Status
		closedAt := m.now
		account.Status = status
		account.ClosedAt = &closedAt
		account.ClosedReason = in.Reason
		m.emit(eventType, "account", account.Id, in.Actor, account.Balance)

		zap.L().Info("Escrow closed",
			zap.String("escrow_id", account.Id),
			zap.String("from", string(previous)),
			zap.String("to", string(status)),
			zap.String("actor", in.Actor),
			zap.String("reason", in.Reason),
			zap.String("balance", account.Balance.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetEscrowSummary returns the dashboard aggregate, or nil when the account does not exist
func (l *Ledger) GetEscrowSummary(ctx context.Context, escrowId string) (*models.EscrowSummary, error) {
	account, err := l.GetEscrowAccount(ctx, escrowId)
	if err != nil || account == nil {
		return nil, err
	}
	return Summarize(account), nil
}

// Summarize derives the dashboard aggregate from an account
func Summarize(account *models.EscrowAccount) *models.EscrowSummary {
	summary := &models.EscrowSummary{
		EscrowId:        account.Id,
		Status:          account.Status,
		Currency:        account.Currency,
		Balance:         account.Balance,
		TotalDeposited:  totalDeposited(account),
		TotalReleased:   decimal.Zero,
		PendingReleases: decimal.Zero,
		TotalConditions: len(account.Conditions),
		TotalMilestones: len(account.Milestones),
	}
	for _, r := range account.Releases {
		switch r.Status {
		case models.ReleaseReleased:
			summary.TotalReleased = summary.TotalReleased.Add(r.Amount)
		case models.ReleasePending, models.ReleaseApproved:
			summary.PendingReleases = summary.PendingReleases.Add(r.Amount)
		}
	}
	for _, c := range account.Conditions {
		if c.Status == models.ConditionMet {
			summary.ConditionsMet++
		}
	}
	for _, m := range account.Milestones {
		if m.Status == models.MilestoneCompleted {
			summary.MilestonesCompleted++
		}
	}
	return summary
}

// ReconcileBalance recomputes the balance from fund consumption and from the
// stored movements, and compares both with the running balance.
func (l *Ledger) ReconcileBalance(ctx context.Context, escrowId string) (*models.BalanceReconciliation, error) {
	unlock := l.locks.lock(escrowId)
	defer unlock()

	account, err := l.GetEscrowAccount(ctx, escrowId)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, notFound("escrow account", escrowId)
	}

	movements, err := l.store.GetMovements(ctx, escrowId)
	if err != nil {
		return nil, err
	}

	fundBalance := decimal.Zero
	for _, f := range account.Funds {
		fundBalance = fundBalance.Add(f.Available())
	}
	journalBalance := decimal.Zero
	for _, mv := range movements {
		journalBalance = journalBalance.Add(mv.Amount)
	}

	result := &models.BalanceReconciliation{
		EscrowId:       account.Id,
		StoredBalance:  account.Balance,
		FundBalance:    fundBalance,
		JournalBalance: journalBalance,
		Balanced:       account.Balance.Equal(fundBalance) && account.Balance.Equal(journalBalance),
	}
	if !result.Balanced {
		zap.L().Warn("Escrow balance drift detected",
			zap.String("escrow_id", account.Id),
			zap.String("stored", account.Balance.String()),
			zap.String("funds", fundBalance.String()),
			zap.String("journal", journalBalance.String()))
	}
	return result, nil
}
