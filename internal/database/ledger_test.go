package database

import (
	"context"
	"testing"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
)

type instantPayments struct{}

func (instantPayments) ExecuteRelease(_ context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	return &models.PaymentResult{Reference: "sim-" + req.ReleaseId, ExecutedAt: time.Now()}, nil
}

// The ledger running on SQLite must keep the stored balance, the fund
// consumption and the movement journal in agreement.
func TestLedgerOnSqlite_ReleaseAcrossFunds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ledger, err := escrow.NewLedger(escrow.Dependencies{Store: service, Payments: instantPayments{}})
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}

	ctx := context.Background()
	account, err := ledger.CreateAccount(ctx, models.CreateAccountInput{
		TransactionId: "txn-1",
		PropertyId:    "prop-1",
		Participants: []models.ParticipantInput{
			{Key: "buyer", Type: models.ParticipantBuyer, Name: "Buyer", Role: models.RoleDepositor},
			{Key: "developer", Type: models.ParticipantDeveloper, Name: "Developer", Role: models.RoleBeneficiary,
				Permissions: []models.Permission{models.PermissionApproveRelease}},
		},
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	for _, amount := range []int64{500, 2000} {
		if _, err := ledger.DepositFunds(ctx, account.Id, models.DepositInput{
			Amount: decimal.NewFromInt(amount), DepositedBy: "buyer",
		}); err != nil {
			t.Fatalf("DepositFunds failed: %v", err)
		}
	}

	release, err := ledger.RequestRelease(ctx, account.Id, models.ReleaseRequestInput{
		Amount: decimal.NewFromInt(2500), Recipient: "developer", RequestedBy: "buyer",
	})
	if err != nil {
		t.Fatalf("RequestRelease failed: %v", err)
	}
	if _, err := ledger.ApproveRelease(ctx, account.Id, release.Id, models.ApprovalInput{
		ApprovedBy: "dev-user", ParticipantId: "developer",
	}); err != nil {
		t.Fatalf("ApproveRelease failed: %v", err)
	}

	got, err := ledger.GetEscrowAccount(ctx, account.Id)
	if err != nil || got == nil {
		t.Fatalf("GetEscrowAccount failed: %v", err)
	}
	if got.Status != models.EscrowStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", got.Status)
	}
	if !got.Balance.IsZero() {
		t.Errorf("Expected zero balance, got %s", got.Balance.String())
	}
	if got.ClosedAt == nil {
		t.Errorf("Expected closed_at to be set")
	}

	rec, err := ledger.ReconcileBalance(ctx, account.Id)
	if err != nil {
		t.Fatalf("ReconcileBalance failed: %v", err)
	}
	if !rec.Balanced {
		t.Errorf("Expected balanced escrow, got %+v", rec)
	}

	movements, err := service.GetMovements(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 3 {
		t.Errorf("Expected 3 movements, got %d", len(movements))
	}
}
