package escrow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestRelease creates a pending release. The amount may not exceed the
// current balance, and a referenced milestone must already be completed.
func (l *Ledger) RequestRelease(ctx context.Context, escrowId string, in models.ReleaseRequestInput) (*models.Release, error) {
	if err := validateAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	if in.RequestedBy == "" {
		return nil, invalid("requested_by", "is required")
	}

	var release models.Release
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		if in.Amount.GreaterThan(account.Balance) {
			return invalid("amount", "release of %s exceeds balance %s", in.Amount.String(), account.Balance.String())
		}

		recipient := findParticipant(account, in.Recipient)
		if recipient < 0 {
			return notFound("participant", in.Recipient)
		}

		milestoneId := ""
		if in.MilestoneId != "" {
			idx := findMilestone(account, in.MilestoneId)
			if idx < 0 {
				return notFound("milestone", in.MilestoneId)
			}
			ms := account.Milestones[idx]
			if ms.Status != models.MilestoneCompleted {
				return invalid("milestone_id", "milestone %s is %s, not completed", ms.Id, ms.Status)
			}
			milestoneId = ms.Id
		}

		var fundIds []string
		if len(in.FundIds) > 0 {
			covered := decimal.Zero
			selected := make(map[int]bool, len(in.FundIds))
			for _, id := range in.FundIds {
				idx := findFund(account, id)
				if idx < 0 {
					return notFound("fund", id)
				}
				// a repeated id names the same fund
				if selected[idx] {
					continue
				}
				selected[idx] = true
				covered = covered.Add(account.Funds[idx].Available())
				fundIds = append(fundIds, account.Funds[idx].Id)
			}
			if in.Amount.GreaterThan(covered) {
				return invalid("fund_ids", "selected funds hold %s, release needs %s", covered.String(), in.Amount.String())
			}
		}

		release = models.Release{
			Id:          l.newId(),
			Amount:      in.Amount,
			Currency:    account.Currency,
			Recipient:   account.Participants[recipient].Id,
			RequestedBy: in.RequestedBy,
			RequestedAt: m.now,
			Reason:      in.Reason,
			MilestoneId: milestoneId,
			FundIds:     fundIds,
			Approvals:   []models.ReleaseApproval{},
			Status:      models.ReleasePending,
		}
		account.Releases = append(account.Releases, release)
		m.emit(models.EventReleaseRequested, "release", release.Id, in.RequestedBy, in.Amount)

		zap.L().Info("Release requested",
			zap.String("escrow_id", account.Id),
			zap.String("release_id", release.Id),
			zap.String("recipient", release.Recipient),
			zap.String("amount", in.Amount.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &release, nil
}

// ApproveRelease records one participant's approval. When every participant
// holding APPROVE_RELEASE has approved, the release is approved and executed
// immediately. If execution fails the approval is still returned together
// with an ExecutionError, and the release is left failed.
func (l *Ledger) ApproveRelease(ctx context.Context, escrowId, releaseId string, in models.ApprovalInput) (*models.ReleaseApproval, error) {
	if in.ApprovedBy == "" {
		return nil, invalid("approved_by", "is required")
	}

	var approval *models.ReleaseApproval
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}
		idx := findRelease(account, releaseId)
		if idx < 0 {
			return notFound("release", releaseId)
		}
		release := &account.Releases[idx]
		if release.Status != models.ReleasePending {
			return invalid("release", "release %s is %s, approvals are closed", release.Id, release.Status)
		}

		pIdx := findParticipant(account, in.ParticipantId)
		if pIdx < 0 {
			return notFound("participant", in.ParticipantId)
		}
		participant := &account.Participants[pIdx]
		if release.HasApprovalFrom(participant.Id) {
			return invalid("participant_id", "participant %s already approved release %s", participant.Id, release.Id)
		}

		approvedAt := m.now
		approval = &models.ReleaseApproval{
			ParticipantId: participant.Id,
			ApprovedBy:    in.ApprovedBy,
			ApprovedAt:    approvedAt,
			Notes:         in.Notes,
			Signature:     in.Signature,
		}
		release.Approvals = append(release.Approvals, *approval)
		participant.Approved = true
		participant.ApprovedAt = &approvedAt

		zap.L().Info("Release approval recorded",
			zap.String("escrow_id", account.Id),
			zap.String("release_id", release.Id),
			zap.String("participant_id", participant.Id))

		if !fullyApproved(account, release) {
			return nil
		}

		release.Status = models.ReleaseApproved
		m.emit(models.EventReleaseApproved, "release", release.Id, in.ApprovedBy, release.Amount)
		zap.L().Info("Release approved",
			zap.String("escrow_id", account.Id),
			zap.String("release_id", release.Id))

		return l.executeRelease(ctx, m, idx)
	})
	if err != nil && !errors.Is(err, ErrExecution) {
		return nil, err
	}
	return approval, err
}

// fullyApproved reports whether every APPROVE_RELEASE holder has approved.
// With no such holder the first approval is enough.
func fullyApproved(account *models.EscrowAccount, release *models.Release) bool {
	for _, p := range account.Participants {
		if p.HasPermission(models.PermissionApproveRelease) && !release.HasApprovalFrom(p.Id) {
			return false
		}
	}
	return len(release.Approvals) > 0
}

// executeRelease pays out an approved release. The payment collaborator is
// called first; balance, fund consumption and release status change only after
// it succeeded and are stored together. Any release not exactly approved is
// left untouched.
func (l *Ledger) executeRelease(ctx context.Context, m *mutation, idx int) error {
	account := m.account
	release := &account.Releases[idx]
	if release.Status != models.ReleaseApproved {
		return nil
	}

	allocation, err := allocateFunds(account, release)
	if err != nil {
		return l.failRelease(m, idx, err)
	}

	recipient := findParticipant(account, release.Recipient)
	if recipient < 0 {
		return l.failRelease(m, idx, fmt.Errorf("recipient %s is not a participant", release.Recipient))
	}

	payCtx, cancel := context.WithTimeout(ctx, l.cfg.PaymentTimeout)
	defer cancel()

	result, err := l.payments.ExecuteRelease(payCtx, models.PaymentRequest{
		EscrowId:      account.Id,
		TransactionId: account.TransactionId,
		ReleaseId:     release.Id,
		Recipient:     account.Participants[recipient],
		Amount:        release.Amount,
		Currency:      release.Currency,
		Reason:        release.Reason,
	})
	if err != nil {
		return l.failRelease(m, idx, err)
	}

	for fIdx, amount := range allocation {
		fund := &account.Funds[fIdx]
		fund.ReleasedAmount = fund.ReleasedAmount.Add(amount)
		if fund.ReleasedAmount.GreaterThanOrEqual(fund.Amount) {
			fund.Status = models.FundReleased
		} else {
			fund.Status = models.FundHeld
		}
	}

	releasedAt := m.now
	release.Status = models.ReleaseReleased
	release.ReleasedAt = &releasedAt
	if result != nil {
		release.PaymentReference = result.Reference
	}
	m.record(models.MovementRelease, release.Amount.Neg(), release.Id, release.Recipient, l.newId())
	m.emit(models.EventFundsReleased, "release", release.Id, l.cfg.SystemActor, release.Amount)

	zap.L().Info("Funds released",
		zap.String("escrow_id", account.Id),
		zap.String("release_id", release.Id),
		zap.String("recipient", release.Recipient),
		zap.String("amount", release.Amount.String()),
		zap.String("balance", account.Balance.String()),
		zap.String("payment_reference", release.PaymentReference))
	return nil
}

func (l *Ledger) failRelease(m *mutation, idx int, cause error) error {
	release := &m.account.Releases[idx]
	release.Status = models.ReleaseFailed
	release.Failure = &models.ReleaseFailure{Reason: cause.Error(), FailedAt: m.now}
	m.keepOnError = true

	zap.L().Error("Release execution failed",
		zap.String("escrow_id", m.account.Id),
		zap.String("release_id", release.Id),
		zap.String("amount", release.Amount.String()),
		zap.Error(cause))
	return &ExecutionError{ReleaseId: release.Id, Err: cause}
}

// allocateFunds spreads the release amount over its funds, oldest deposit
// first, and returns the amount taken from each fund index. An empty fund id
// list means any fund with money left.
func allocateFunds(account *models.EscrowAccount, release *models.Release) (map[int]decimal.Decimal, error) {
	if release.Amount.GreaterThan(account.Balance) {
		return nil, fmt.Errorf("release of %s exceeds balance %s", release.Amount.String(), account.Balance.String())
	}

	var candidates []int
	if len(release.FundIds) == 0 {
		for i := range account.Funds {
			candidates = append(candidates, i)
		}
	} else {
		seen := make(map[int]bool, len(release.FundIds))
		for _, id := range release.FundIds {
			if i := findFund(account, id); i >= 0 && !seen[i] {
				seen[i] = true
				candidates = append(candidates, i)
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return account.Funds[candidates[a]].DepositedAt.Before(account.Funds[candidates[b]].DepositedAt)
	})

	allocation := make(map[int]decimal.Decimal)
	remaining := release.Amount
	for _, i := range candidates {
		if !remaining.IsPositive() {
			break
		}
		available := account.Funds[i].Available().Sub(allocation[i])
		if !available.IsPositive() {
			continue
		}
		take := decimal.Min(available, remaining)
		allocation[i] = allocation[i].Add(take)
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, fmt.Errorf("funds cannot cover release, %s short", remaining.String())
	}
	return allocation, nil
}
