package escrow

import (
	"context"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarkConditionMet verifies a pending condition and runs the milestone and
// auto-release cascade to a fixed point before returning.
func (l *Ledger) MarkConditionMet(ctx context.Context, escrowId, conditionId string, in models.VerifyConditionInput) (*models.Condition, error) {
	if in.VerifiedBy == "" {
		return nil, invalid("verified_by", "is required")
	}

	var condition models.Condition
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		idx := findCondition(account, conditionId)
		if idx < 0 {
			return notFound("condition", conditionId)
		}
		c := &account.Conditions[idx]
		if c.Status != models.ConditionPending {
			return invalid("condition", "condition %s is already %s", c.Id, c.Status)
		}

		verifiedAt := m.now
		c.Status = models.ConditionMet
		c.VerifiedBy = in.VerifiedBy
		c.VerifiedAt = &verifiedAt
		c.Documents = append(c.Documents, in.Documents...)
		if in.Notes != "" {
			c.Notes = in.Notes
		}
		m.emit(models.EventConditionMet, "condition", c.Id, in.VerifiedBy, decimal.Zero)

		zap.L().Info("Condition met",
			zap.String("escrow_id", account.Id),
			zap.String("condition_id", c.Id),
			zap.String("verified_by", in.VerifiedBy))

		l.evaluateMilestones(m)
		condition = account.Conditions[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &condition, nil
}

// FailCondition marks a pending condition failed. Milestones gated on it that
// have not completed can no longer complete and are marked failed too.
func (l *Ledger) FailCondition(ctx context.Context, escrowId, conditionId string, in models.VerifyConditionInput) (*models.Condition, error) {
	if in.VerifiedBy == "" {
		return nil, invalid("verified_by", "is required")
	}

	var condition models.Condition
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		idx := findCondition(account, conditionId)
		if idx < 0 {
			return notFound("condition", conditionId)
		}
		c := &account.Conditions[idx]
		if c.Status != models.ConditionPending {
			return invalid("condition", "condition %s is already %s", c.Id, c.Status)
		}

		verifiedAt := m.now
		c.Status = models.ConditionFailed
		c.VerifiedBy = in.VerifiedBy
		c.VerifiedAt = &verifiedAt
		c.Documents = append(c.Documents, in.Documents...)
		if in.Notes != "" {
			c.Notes = in.Notes
		}

		for i := range account.Milestones {
			ms := &account.Milestones[i]
			if ms.Status == models.MilestoneCompleted || ms.Status == models.MilestoneFailed {
				continue
			}
			if contains(ms.Conditions, c.Id) {
				ms.Status = models.MilestoneFailed
				zap.L().Warn("Milestone failed with its condition",
					zap.String("escrow_id", account.Id),
					zap.String("milestone_id", ms.Id),
					zap.String("condition_id", c.Id))
			}
		}

		zap.L().Info("Condition failed",
			zap.String("escrow_id", account.Id),
			zap.String("condition_id", c.Id),
			zap.String("verified_by", in.VerifiedBy))
		condition = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &condition, nil
}

// CompleteMilestone completes a milestone on request. The milestone's
// conditions and dependencies must already be satisfied.
func (l *Ledger) CompleteMilestone(ctx context.Context, escrowId, milestoneId, completedBy string) (*models.Milestone, error) {
	if completedBy == "" {
		return nil, invalid("completed_by", "is required")
	}

	var milestone models.Milestone
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		idx := findMilestone(account, milestoneId)
		if idx < 0 {
			return notFound("milestone", milestoneId)
		}
		ms := &account.Milestones[idx]
		if ms.Status == models.MilestoneCompleted || ms.Status == models.MilestoneFailed {
			return invalid("milestone", "milestone %s is already %s", ms.Id, ms.Status)
		}
		if !conditionsMet(account, ms) {
			return invalid("milestone", "milestone %s has unmet conditions", ms.Id)
		}
		if !dependenciesCompleted(account, ms) {
			return invalid("milestone", "milestone %s has incomplete dependencies", ms.Id)
		}

		l.completeMilestone(m, idx, completedBy)
		l.evaluateMilestones(m)
		milestone = account.Milestones[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

// evaluateMilestones completes every open milestone whose conditions are all
// met and whose dependencies are completed, repeating until nothing changes.
// Milestones without conditions are left to CompleteMilestone.
func (l *Ledger) evaluateMilestones(m *mutation) {
	account := m.account
	for changed := true; changed; {
		changed = false
		for i := range account.Milestones {
			ms := &account.Milestones[i]
			if ms.Status != models.MilestonePending && ms.Status != models.MilestoneInProgress {
				continue
			}
			// no conditions is not treated as all met
			if len(ms.Conditions) == 0 {
				continue
			}
			if !conditionsMet(account, ms) {
				if ms.Status == models.MilestonePending && anyMet(account, ms) {
					ms.Status = models.MilestoneInProgress
				}
				continue
			}
			if !dependenciesCompleted(account, ms) {
				ms.Status = models.MilestoneInProgress
				continue
			}
			l.completeMilestone(m, i, l.cfg.SystemActor)
			changed = true
		}
	}
}

func (l *Ledger) completeMilestone(m *mutation, idx int, actor string) {
	ms := &m.account.Milestones[idx]
	completedAt := m.now
	ms.Status = models.MilestoneCompleted
	ms.CompletedAt = &completedAt
	m.emit(models.EventMilestoneCompleted, "milestone", ms.Id, actor, decimal.Zero)

	zap.L().Info("Milestone completed",
		zap.String("escrow_id", m.account.Id),
		zap.String("milestone_id", ms.Id),
		zap.String("title", ms.Title))

	l.autoRelease(m, *ms)
}

// autoRelease requests a release for a completed milestone that carries a
// release amount or percentage. The request still needs approvals.
func (l *Ledger) autoRelease(m *mutation, ms models.Milestone) {
	account := m.account

	amount := ms.ReleaseAmount
	if !amount.IsPositive() && ms.ReleasePercentage.IsPositive() {
		amount = totalDeposited(account).Mul(ms.ReleasePercentage).Div(hundred).Round(2)
	}
	if !amount.IsPositive() {
		return
	}

	recipient := -1
	for i, p := range account.Participants {
		if p.Type == models.ParticipantSeller || p.Type == models.ParticipantDeveloper {
			recipient = i
			break
		}
	}
	if recipient < 0 {
		zap.L().Warn("Skipping automatic release, no seller or developer on escrow",
			zap.String("escrow_id", account.Id),
			zap.String("milestone_id", ms.Id))
		return
	}
	if amount.GreaterThan(account.Balance) {
		zap.L().Warn("Skipping automatic release, insufficient balance",
			zap.String("escrow_id", account.Id),
			zap.String("milestone_id", ms.Id),
			zap.String("amount", amount.String()),
			zap.String("balance", account.Balance.String()))
		return
	}

	release := models.Release{
		Id:          l.newId(),
		Amount:      amount,
		Currency:    account.Currency,
		Recipient:   account.Participants[recipient].Id,
		RequestedBy: l.cfg.SystemActor,
		RequestedAt: m.now,
		Reason:      "Automatic release for milestone: " + ms.Title,
		MilestoneId: ms.Id,
		Approvals:   []models.ReleaseApproval{},
		Status:      models.ReleasePending,
		Automatic:   true,
	}
	account.Releases = append(account.Releases, release)
	m.emit(models.EventReleaseRequested, "release", release.Id, l.cfg.SystemActor, amount)

	zap.L().Info("Automatic release requested",
		zap.String("escrow_id", account.Id),
		zap.String("release_id", release.Id),
		zap.String("milestone_id", ms.Id),
		zap.String("amount", amount.String()))
}

func conditionsMet(account *models.EscrowAccount, ms *models.Milestone) bool {
	for _, id := range ms.Conditions {
		idx := findCondition(account, id)
		if idx < 0 || account.Conditions[idx].Status != models.ConditionMet {
			return false
		}
	}
	return true
}

func anyMet(account *models.EscrowAccount, ms *models.Milestone) bool {
	for _, id := range ms.Conditions {
		idx := findCondition(account, id)
		if idx >= 0 && account.Conditions[idx].Status == models.ConditionMet {
			return true
		}
	}
	return false
}

func dependenciesCompleted(account *models.EscrowAccount, ms *models.Milestone) bool {
	for _, id := range ms.Dependencies {
		idx := findMilestone(account, id)
		if idx < 0 || account.Milestones[idx].Status != models.MilestoneCompleted {
			return false
		}
	}
	return true
}

func totalDeposited(account *models.EscrowAccount) decimal.Decimal {
	total := decimal.Zero
	for _, f := range account.Funds {
		total = total.Add(f.Amount)
	}
	return total
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
