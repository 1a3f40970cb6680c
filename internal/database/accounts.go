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
	"encoding/json"
	"errors"
	"fmt"

	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func (s *Service) CreateAccount(ctx context.Context, account *models.EscrowAccount) error {
	account.Version = 1
	document, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode escrow %s: %w", account.Id, err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertAccount,
		account.Id, account.TransactionId, account.PropertyId, string(account.Status), account.Currency,
		account.Balance.String(), string(document), account.Version,
		formatTime(account.CreatedAt), formatTime(account.UpdatedAt))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateAccount, account.Id)
		}
		return fmt.Errorf("failed to insert escrow %s: %w", account.Id, err)
	}

	zap.L().Debug("Escrow account stored",
		zap.String("escrow_id", account.Id),
		zap.String("transaction_id", account.TransactionId))
	return nil
}

func (s *Service) GetAccount(ctx context.Context, escrowId string) (*models.EscrowAccount, error) {
	var document string
	var version int64
	err := s.db.QueryRowContext(ctx, queryGetAccount, escrowId).Scan(&document, &version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, escrowId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow %s: %w", escrowId, err)
	}
	return decodeAccount(document, version)
}

func (s *Service) ListByTransaction(ctx context.Context, transactionId string) ([]*models.EscrowAccount, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccountsByTransaction, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to list escrows for transaction %s: %w", transactionId, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []*models.EscrowAccount
	for rows.Next() {
		var document string
		var version int64
		if err := rows.Scan(&document, &version); err != nil {
			return nil, fmt.Errorf("failed to scan escrow: %w", err)
		}
		account, err := decodeAccount(document, version)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during escrow row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating escrow rows: %w", err)
	}
	return accounts, nil
}

// SaveAccount writes the account document and its movements in one transaction.
// The write only succeeds if the stored version still equals account.Version.
func (s *Service) SaveAccount(ctx context.Context, account *models.EscrowAccount, movements ...models.Movement) error {
	next := *account
	next.Version = account.Version + 1
	document, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode escrow %s: %w", account.Id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryUpdateAccount,
		string(account.Status), account.Balance.String(), string(document), formatTime(account.UpdatedAt),
		account.Id, account.Version)
	if err != nil {
		return fmt.Errorf("failed to update escrow %s: %w", account.Id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var count int
		if err := tx.QueryRowContext(ctx, queryAccountExists, account.Id).Scan(&count); err != nil {
			return fmt.Errorf("failed to check escrow %s: %w", account.Id, err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", store.ErrAccountNotFound, account.Id)
		}
		return fmt.Errorf("escrow %s update at version %d failed - %w", account.Id, account.Version, store.ErrConcurrentModification)
	}

	for _, movement := range movements {
		if err := s.subledger.recordMovement(ctx, tx, movement); err != nil {
			return fmt.Errorf("failed to record movement %s: %w", movement.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	account.Version = next.Version
	zap.L().Debug("Escrow account saved",
		zap.String("escrow_id", account.Id),
		zap.Int64("version", account.Version),
		zap.Int("movements", len(movements)))
	return nil
}

func (s *Service) GetMovements(ctx context.Context, escrowId string) ([]models.Movement, error) {
	return s.subledger.GetMovements(ctx, escrowId)
}

// GetJournalEntries returns the double-entry legs recorded for an escrow's movements
func (s *Service) GetJournalEntries(ctx context.Context, escrowId string) ([]models.JournalEntry, error) {
	return s.subledger.GetJournalEntries(ctx, escrowId)
}

func decodeAccount(document string, version int64) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	if err := json.Unmarshal([]byte(document), &account); err != nil {
		return nil, fmt.Errorf("failed to decode escrow document: %w", err)
	}
	account.Version = version
	return &account, nil
}
