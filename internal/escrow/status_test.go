package escrow

import (
	"testing"

	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	fund := models.Fund{Amount: decimal.NewFromInt(100), Status: models.FundDeposited}
	met := models.Condition{Status: models.ConditionMet}
	pending := models.Condition{Status: models.ConditionPending}
	done := models.Milestone{Status: models.MilestoneCompleted}
	open := models.Milestone{Status: models.MilestonePending}

	tests := []struct {
		name    string
		account models.EscrowAccount
		want    models.EscrowStatus
	}{
		{
			name:    "empty account",
			account: models.EscrowAccount{Status: models.EscrowStatusCreated},
			want:    models.EscrowStatusCreated,
		},
		{
			name:    "funded",
			account: models.EscrowAccount{Status: models.EscrowStatusCreated, Funds: []models.Fund{fund}},
			want:    models.EscrowStatusFunded,
		},
		{
			name: "one of two conditions met",
			account: models.EscrowAccount{
				Status: models.EscrowStatusFunded, Funds: []models.Fund{fund},
				Conditions: []models.Condition{met, pending},
			},
			want: models.EscrowStatusActive,
		},
		{
			name: "all conditions met",
			account: models.EscrowAccount{
				Status: models.EscrowStatusActive, Funds: []models.Fund{fund},
				Conditions: []models.Condition{met, met},
			},
			want: models.EscrowStatusConditionsMet,
		},
		{
			name: "release awaiting approval",
			account: models.EscrowAccount{
				Status: models.EscrowStatusFunded, Funds: []models.Fund{fund},
				Releases: []models.Release{{Status: models.ReleasePending}},
			},
			want: models.EscrowStatusReadyForRelease,
		},
		{
			name: "partially released",
			account: models.EscrowAccount{
				Status: models.EscrowStatusReadyForRelease, Balance: decimal.NewFromInt(40),
				Funds:      []models.Fund{fund},
				Milestones: []models.Milestone{done},
				Releases:   []models.Release{{Status: models.ReleaseReleased}},
			},
			want: models.EscrowStatusPartiallyReleased,
		},
		{
			name: "drained but milestone open",
			account: models.EscrowAccount{
				Status: models.EscrowStatusReadyForRelease, Balance: decimal.Zero,
				Funds:      []models.Fund{fund},
				Milestones: []models.Milestone{done, open},
				Releases:   []models.Release{{Status: models.ReleaseReleased}},
			},
			want: models.EscrowStatusPartiallyReleased,
		},
		{
			name: "completed",
			account: models.EscrowAccount{
				Status: models.EscrowStatusPartiallyReleased, Balance: decimal.Zero,
				Funds:      []models.Fund{fund},
				Milestones: []models.Milestone{done},
				Releases:   []models.Release{{Status: models.ReleaseReleased}},
			},
			want: models.EscrowStatusCompleted,
		},
		{
			name: "never moves backwards",
			account: models.EscrowAccount{
				Status: models.EscrowStatusReadyForRelease, Funds: []models.Fund{fund},
				Releases: []models.Release{{Status: models.ReleaseFailed}},
			},
			want: models.EscrowStatusReadyForRelease,
		},
		{
			name: "disputed stays disputed",
			account: models.EscrowAccount{
				Status: models.EscrowStatusDisputed, Balance: decimal.Zero,
				Releases: []models.Release{{Status: models.ReleaseReleased}},
			},
			want: models.EscrowStatusDisputed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := tt.account
			assert.Equal(t, tt.want, DeriveStatus(&account))
		})
	}
}

func TestFindDependencyCycle(t *testing.T) {
	assert.Empty(t, findDependencyCycle([]models.MilestoneInput{
		{Key: "A"},
		{Key: "B", Dependencies: []string{"A"}},
		{Key: "C", Dependencies: []string{"A", "B"}},
	}))
	assert.NotEmpty(t, findDependencyCycle([]models.MilestoneInput{
		{Key: "A", Dependencies: []string{"B"}},
		{Key: "B", Dependencies: []string{"A"}},
	}))
}

func TestAccountLocks_ReleaseEntries(t *testing.T) {
	locks := newAccountLocks()
	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	assert.Zero(t, locks.size())
}
