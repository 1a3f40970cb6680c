package escrow

import "propie-escrow-go/internal/models"

var statusRank = map[models.EscrowStatus]int{
	models.EscrowStatusCreated:           0,
	models.EscrowStatusFunded:            1,
	models.EscrowStatusActive:            2,
	models.EscrowStatusConditionsMet:     3,
	models.EscrowStatusReadyForRelease:   4,
	models.EscrowStatusPartiallyReleased: 5,
	models.EscrowStatusCompleted:         6,
}

// DeriveStatus computes the account status from its contents. The result never
// ranks below the current status, and exceptional terminal states are kept as is.
func DeriveStatus(account *models.EscrowAccount) models.EscrowStatus {
	if account.Status.IsTerminal() {
		return account.Status
	}

	derived := models.EscrowStatusCreated
	if len(account.Funds) > 0 {
		derived = models.EscrowStatusFunded
	}
	if anyConditionMet(account) || anyMilestoneCompleted(account) {
		derived = models.EscrowStatusActive
	}
	if len(account.Conditions) > 0 && allConditionsMet(account) {
		derived = models.EscrowStatusConditionsMet
	}
	if hasOpenRelease(account) {
		derived = models.EscrowStatusReadyForRelease
	}
	if hasReleased(account) {
		derived = models.EscrowStatusPartiallyReleased
		if account.Balance.IsZero() && allMilestonesCompleted(account) {
			derived = models.EscrowStatusCompleted
		}
	}

	if statusRank[derived] < statusRank[account.Status] {
		return account.Status
	}
	return derived
}

func anyConditionMet(account *models.EscrowAccount) bool {
	for _, c := range account.Conditions {
		if c.Status == models.ConditionMet {
			return true
		}
	}
	return false
}

func allConditionsMet(account *models.EscrowAccount) bool {
	for _, c := range account.Conditions {
		if c.Status != models.ConditionMet {
			return false
		}
	}
	return true
}

func anyMilestoneCompleted(account *models.EscrowAccount) bool {
	for _, m := range account.Milestones {
		if m.Status == models.MilestoneCompleted {
			return true
		}
	}
	return false
}

func allMilestonesCompleted(account *models.EscrowAccount) bool {
	for _, m := range account.Milestones {
		if m.Status != models.MilestoneCompleted {
			return false
		}
	}
	return true
}

func hasOpenRelease(account *models.EscrowAccount) bool {
	for _, r := range account.Releases {
		if r.Status == models.ReleasePending || r.Status == models.ReleaseApproved {
			return true
		}
	}
	return false
}

func hasReleased(account *models.EscrowAccount) bool {
	for _, r := range account.Releases {
		if r.Status == models.ReleaseReleased {
			return true
		}
	}
	return false
}
