package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is its own database
	db.SetMaxOpenConns(1)

	service, err := newService(db)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func testAccount(id, transactionId string, createdAt time.Time) *models.EscrowAccount {
	return &models.EscrowAccount{
		Id:            id,
		TransactionId: transactionId,
		PropertyId:    "prop-1",
		Status:        models.EscrowStatusCreated,
		Balance:       decimal.Zero,
		Currency:      "EUR",
		Participants: []models.Participant{
			{Id: "p-buyer", Key: "buyer", Type: models.ParticipantBuyer, Name: "Buyer", Role: models.RoleDepositor},
		},
		Milestones: []models.Milestone{
			{Id: "m-1", Title: "Contracts", Status: models.MilestonePending, ReleaseAmount: decimal.RequireFromString("10000.50")},
		},
		Funds:     []models.Fund{},
		Releases:  []models.Release{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func deposit(account *models.EscrowAccount, id string, amount decimal.Decimal, at time.Time) models.Movement {
	before := account.Balance
	account.Balance = before.Add(amount)
	account.Funds = append(account.Funds, models.Fund{
		Id: id, Amount: amount, ReleasedAmount: decimal.Zero, Currency: "EUR",
		Status: models.FundDeposited, DepositedBy: "p-buyer", DepositedAt: at,
	})
	return models.Movement{
		Id: "mv-" + id, EscrowId: account.Id, MovementType: models.MovementDeposit,
		Amount: amount, BalanceBefore: before, BalanceAfter: account.Balance,
		Currency: "EUR", Reference: id, Counterparty: "p-buyer", CreatedAt: at,
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()
	account := testAccount("esc-1", "txn-1", now)

	if err := service.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.Version != 1 {
		t.Errorf("Expected version 1, got %d", account.Version)
	}

	got, err := service.GetAccount(ctx, "esc-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.TransactionId != "txn-1" {
		t.Errorf("Expected transaction txn-1, got %s", got.TransactionId)
	}
	if len(got.Participants) != 1 || got.Participants[0].Key != "buyer" {
		t.Errorf("Participants not round-tripped: %+v", got.Participants)
	}
	if !got.Milestones[0].ReleaseAmount.Equal(decimal.RequireFromString("10000.50")) {
		t.Errorf("Expected release amount 10000.50, got %s", got.Milestones[0].ReleaseAmount.String())
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("Expected created_at %v, got %v", now, got.CreatedAt)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if err := service.CreateAccount(ctx, testAccount("esc-1", "txn-1", time.Now())); err != nil {
		t.Fatalf("First CreateAccount failed: %v", err)
	}

	err := service.CreateAccount(ctx, testAccount("esc-1", "txn-1", time.Now()))
	if !errors.Is(err, store.ErrDuplicateAccount) {
		t.Errorf("Expected duplicate account error, got: %v", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetAccount(context.Background(), "missing")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected account not found error, got: %v", err)
	}
}

func TestSaveAccount_RecordsMovementsAndJournal(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()
	account := testAccount("esc-1", "txn-1", now)
	if err := service.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	first := deposit(account, "f-1", decimal.NewFromInt(500), now.Add(time.Second))
	second := deposit(account, "f-2", decimal.NewFromInt(2000), now.Add(2*time.Second))
	if err := service.SaveAccount(ctx, account, first, second); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	if account.Version != 2 {
		t.Errorf("Expected version 2, got %d", account.Version)
	}

	release := models.Movement{
		Id: "mv-r-1", EscrowId: account.Id, MovementType: models.MovementRelease,
		Amount: decimal.NewFromInt(-2500), BalanceBefore: account.Balance, BalanceAfter: decimal.Zero,
		Currency: "EUR", Reference: "r-1", Counterparty: "p-dev", CreatedAt: now.Add(3 * time.Second),
	}
	account.Balance = decimal.Zero
	if err := service.SaveAccount(ctx, account, release); err != nil {
		t.Fatalf("SaveAccount release failed: %v", err)
	}

	movements, err := service.GetMovements(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("Expected 3 movements, got %d", len(movements))
	}
	if movements[2].MovementType != models.MovementRelease || !movements[2].Amount.Equal(decimal.NewFromInt(-2500)) {
		t.Errorf("Unexpected release movement: %+v", movements[2])
	}
	total := decimal.Zero
	for _, mv := range movements {
		total = total.Add(mv.Amount)
	}
	if !total.IsZero() {
		t.Errorf("Expected movements to sum to zero, got %s", total.String())
	}

	entries, err := service.GetJournalEntries(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetJournalEntries failed: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("Expected 6 journal entries, got %d", len(entries))
	}
	debits, credits := decimal.Zero, decimal.Zero
	held := decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.DebitAmount)
		credits = credits.Add(e.CreditAmount)
		if e.AccountType == accountEscrowHeld {
			held = held.Add(e.DebitAmount).Sub(e.CreditAmount)
		}
	}
	if !debits.Equal(credits) {
		t.Errorf("Journal unbalanced: debits %s, credits %s", debits.String(), credits.String())
	}
	if !held.IsZero() {
		t.Errorf("Expected escrow held balance 0, got %s", held.String())
	}
}

func TestSaveAccount_ConcurrentModification(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if err := service.CreateAccount(ctx, testAccount("esc-1", "txn-1", time.Now())); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	first, err := service.GetAccount(ctx, "esc-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	stale, err := service.GetAccount(ctx, "esc-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}

	mv := deposit(first, "f-1", decimal.NewFromInt(100), time.Now())
	if err := service.SaveAccount(ctx, first, mv); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	mv = deposit(stale, "f-2", decimal.NewFromInt(999), time.Now())
	err = service.SaveAccount(ctx, stale, mv)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected concurrent modification error, got: %v", err)
	}

	// The rejected save must not leave its movement behind
	movements, err := service.GetMovements(ctx, "esc-1")
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("Expected 1 movement, got %d", len(movements))
	}

	got, err := service.GetAccount(ctx, "esc-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected balance 100, got %s", got.Balance.String())
	}
	if got.Version != 2 {
		t.Errorf("Expected version 2, got %d", got.Version)
	}
}

func TestSaveAccount_StoresUpdatedAt(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	account := testAccount("esc-1", "txn-1", created)
	if err := service.CreateAccount(ctx, account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	account.UpdatedAt = created.Add(90 * time.Minute)
	if err := service.SaveAccount(ctx, account); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}

	var updatedAt string
	if err := service.db.QueryRowContext(ctx, "SELECT updated_at FROM escrow_accounts WHERE id = ?", "esc-1").Scan(&updatedAt); err != nil {
		t.Fatalf("Failed to read updated_at: %v", err)
	}
	if updatedAt != formatTime(account.UpdatedAt) {
		t.Errorf("Expected updated_at %s, got %s", formatTime(account.UpdatedAt), updatedAt)
	}
}

func TestSaveAccount_Missing(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	err := service.SaveAccount(context.Background(), testAccount("ghost", "txn-1", time.Now()))
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected account not found error, got: %v", err)
	}
}

func TestListByTransaction(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now()
	for _, a := range []*models.EscrowAccount{
		testAccount("esc-b", "txn-1", base.Add(time.Minute)),
		testAccount("esc-a", "txn-1", base),
		testAccount("esc-c", "txn-2", base),
	} {
		if err := service.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
	}

	accounts, err := service.ListByTransaction(ctx, "txn-1")
	if err != nil {
		t.Fatalf("ListByTransaction failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Id != "esc-a" || accounts[1].Id != "esc-b" {
		t.Errorf("Expected oldest first, got %s, %s", accounts[0].Id, accounts[1].Id)
	}
}

func TestNewService_ValidatesConfig(t *testing.T) {
	ctx := context.Background()
	cases := []models.DatabaseConfig{
		{Path: "", MaxOpenConns: 1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, PingTimeout: 0},
	}
	for _, cfg := range cases {
		if _, err := NewService(ctx, cfg); err == nil {
			t.Errorf("Expected config error for %+v", cfg)
		}
	}
}

func TestNewService_File(t *testing.T) {
	cfg := models.DatabaseConfig{
		Path:         t.TempDir() + "/escrow.db",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
	}
	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer service.Close()

	if err := service.CreateAccount(context.Background(), testAccount("esc-1", "txn-1", time.Now())); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
}

func TestPing(t *testing.T) {
	service, cleanup := setupTestDb(t)

	if err := service.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on open database failed: %v", err)
	}

	cleanup()
	if err := service.Ping(context.Background()); err == nil {
		t.Error("Expected Ping to fail after the database is closed")
	}
}
