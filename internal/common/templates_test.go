package common

import (
	"context"
	"testing"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/payments"
	"propie-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates_RepositoryFile(t *testing.T) {
	templates, err := LoadTemplates("../../escrow_templates.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, templates)

	tmpl, err := FindTemplate(templates, "irish-new-build")
	require.NoError(t, err)
	assert.Equal(t, "EUR", tmpl.Currency)
	assert.Len(t, tmpl.Milestones, 3)

	_, err = FindTemplate(templates, "commercial-lease")
	assert.ErrorContains(t, err, "irish-new-build")
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "templates:\n  - currency: EUR\n    participants: [{key: b}]\n"},
		{"duplicate", "templates:\n  - name: a\n    participants: [{key: b}]\n  - name: a\n    participants: [{key: b}]\n"},
		{"no participants", "templates:\n  - name: a\n"},
		{"not yaml", "templates: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestToInput_RejectsBadAmounts(t *testing.T) {
	tmpl := EscrowTemplate{
		Name:         "broken",
		Participants: []ParticipantTemplate{{Key: "b", Type: "buyer", Name: "B", Role: "depositor"}},
		Milestones:   []MilestoneTemplate{{Key: "m", Title: "M", ReleaseAmount: "ten thousand"}},
	}
	_, err := tmpl.ToInput("txn", "prop", time.Now())
	assert.ErrorContains(t, err, "release_amount")
}

func TestIrishNewBuildTemplate_RunsThroughLedger(t *testing.T) {
	templates, err := LoadTemplates("../../escrow_templates.yaml")
	require.NoError(t, err)
	tmpl, err := FindTemplate(templates, "irish-new-build")
	require.NoError(t, err)

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	in, err := tmpl.ToInput("txn-77", "unit-12", now)
	require.NoError(t, err)
	assert.Equal(t, "irish-new-build", in.Metadata["template"])
	require.NotNil(t, in.Conditions[0].DueDate)
	assert.Equal(t, now.AddDate(0, 0, 7), *in.Conditions[0].DueDate)

	ledger, err := escrow.NewLedger(escrow.Dependencies{
		Store:    store.NewMemoryStore(),
		Payments: payments.NewSimulated(0),
	})
	require.NoError(t, err)

	ctx := context.Background()
	account, err := ledger.CreateAccount(ctx, in)
	require.NoError(t, err)

	_, err = ledger.DepositFunds(ctx, account.Id, models.DepositInput{
		Amount: decimal.NewFromInt(20000), DepositedBy: "buyer", Purpose: "contract deposit",
	})
	require.NoError(t, err)

	for _, key := range []string{"booking-deposit", "contracts-signed"} {
		_, err = ledger.MarkConditionMet(ctx, account.Id, key, models.VerifyConditionInput{VerifiedBy: "solicitor"})
		require.NoError(t, err)
	}

	got, err := ledger.GetEscrowAccount(ctx, account.Id)
	require.NoError(t, err)
	require.Len(t, got.Releases, 1)
	assert.True(t, got.Releases[0].Amount.Equal(decimal.NewFromInt(2000)), "ten percent of deposits")

	_, err = ledger.ApproveRelease(ctx, account.Id, got.Releases[0].Id, models.ApprovalInput{
		ApprovedBy: "solicitor", ParticipantId: "buyer-solicitor",
	})
	require.NoError(t, err)

	summary, err := ledger.GetEscrowSummary(ctx, account.Id)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(18000)))
	assert.Equal(t, 1, summary.MilestonesCompleted)
}
