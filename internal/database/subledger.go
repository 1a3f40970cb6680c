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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"propie-escrow-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Journal account types
const (
	accountEscrowHeld         = "escrow_held"
	accountDepositorLiability = "depositor_liability"
	accountRecipientPayable   = "recipient_payable"
)

// SubledgerService records balance movements and their journal legs
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Movements: every balance change of an escrow (audit trail)
	CREATE TABLE IF NOT EXISTS escrow_movements (
		id TEXT PRIMARY KEY,
		escrow_id TEXT NOT NULL,
		movement_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		currency TEXT NOT NULL,
		reference TEXT,
		counterparty TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_escrow_movements_escrow ON escrow_movements(escrow_id);
	CREATE INDEX IF NOT EXISTS idx_escrow_movements_reference ON escrow_movements(reference);

	-- Journal entries for double-entry bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		movement_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT NOT NULL DEFAULT '0',
		credit_amount TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_movement_id ON journal_entries(movement_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// recordMovement inserts a movement and its journal legs inside tx
func (s *SubledgerService) recordMovement(ctx context.Context, tx *sql.Tx, movement models.Movement) error {
	_, err := tx.ExecContext(ctx, queryInsertMovement,
		movement.Id, movement.EscrowId, string(movement.MovementType),
		movement.Amount.String(), movement.BalanceBefore.String(), movement.BalanceAfter.String(),
		movement.Currency, movement.Reference, movement.Counterparty, formatTime(movement.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}

	if err := s.addJournalEntries(ctx, tx, movement); err != nil {
		return fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Debug("Movement recorded",
		zap.String("movement_id", movement.Id),
		zap.String("escrow_id", movement.EscrowId),
		zap.String("type", string(movement.MovementType)),
		zap.String("amount", movement.Amount.String()))
	return nil
}

type journalLeg struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// addJournalEntries creates double-entry bookkeeping entries
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, movement models.Movement) error {
	// Deposit: escrow holding increases (debit), we owe the depositor (credit)
	// Release: escrow holding decreases (credit), the recipient is paid (debit)
	amount := movement.Amount.Abs()
	held := fmt.Sprintf("%s_%s", movement.EscrowId, movement.Currency)

	var legs []journalLeg
	switch movement.MovementType {
	case models.MovementDeposit:
		legs = []journalLeg{
			{accountEscrowHeld, held, amount, decimal.Zero},
			{accountDepositorLiability, movement.Counterparty, decimal.Zero, amount},
		}
	case models.MovementRelease:
		legs = []journalLeg{
			{accountEscrowHeld, held, decimal.Zero, amount},
			{accountRecipientPayable, movement.Counterparty, amount, decimal.Zero},
		}
	default:
		return fmt.Errorf("unknown movement type %q", movement.MovementType)
	}

	for _, leg := range legs {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), movement.Id, leg.accountType, leg.accountId,
			leg.debitAmount.String(), leg.creditAmount.String(), formatTime(movement.CreatedAt))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SubledgerService) GetMovements(ctx context.Context, escrowId string) ([]models.Movement, error) {
	zap.L().Debug("Getting escrow movements", zap.String("escrow_id", escrowId))

	rows, err := s.db.QueryContext(ctx, queryGetMovements, escrowId)
	if err != nil {
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var movements []models.Movement
	for rows.Next() {
		var mv models.Movement
		var movementType, amountStr, beforeStr, afterStr, createdStr string
		var reference, counterparty sql.NullString
		err := rows.Scan(&mv.Id, &mv.EscrowId, &movementType, &amountStr, &beforeStr, &afterStr,
			&mv.Currency, &reference, &counterparty, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		mv.MovementType = models.MovementType(movementType)
		mv.Reference = reference.String
		mv.Counterparty = counterparty.String

		if mv.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if mv.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", beforeStr, err)
		}
		if mv.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", afterStr, err)
		}
		if mv.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during movement row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating movement rows: %w", err)
	}
	return movements, nil
}

func (s *SubledgerService) GetJournalEntries(ctx context.Context, escrowId string) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetJournalEntries, escrowId)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.JournalEntry
	for rows.Next() {
		var entry models.JournalEntry
		var debitStr, creditStr, createdStr string
		err := rows.Scan(&entry.Id, &entry.MovementId, &entry.AccountType, &entry.AccountId,
			&debitStr, &creditStr, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if entry.DebitAmount, err = decimal.NewFromString(debitStr); err != nil {
			return nil, fmt.Errorf("failed to parse debit '%s': %w", debitStr, err)
		}
		if entry.CreditAmount, err = decimal.NewFromString(creditStr); err != nil {
			return nil, fmt.Errorf("failed to parse credit '%s': %w", creditStr, err)
		}
		if entry.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}
