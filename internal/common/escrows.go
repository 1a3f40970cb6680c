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

package common

import (
	"context"
	"fmt"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"go.uber.org/zap"
)

// LoadEscrows resolves the accounts a command-line utility should act on.
// An escrow id selects a single account, otherwise every account of the
// transaction is returned.
func LoadEscrows(ctx context.Context, ledger *escrow.Ledger, escrowId, transactionId string) ([]*models.EscrowAccount, error) {
	var accounts []*models.EscrowAccount

	if escrowId != "" {
		zap.L().Info("Looking up escrow account", zap.String("escrow_id", escrowId))
		account, err := ledger.GetEscrowAccount(ctx, escrowId)
		if err != nil {
			return nil, fmt.Errorf("failed to get escrow account: %w", err)
		}
		if account == nil {
			return nil, fmt.Errorf("escrow account %q not found", escrowId)
		}
		accounts = append(accounts, account)
	} else {
		if transactionId == "" {
			return nil, fmt.Errorf("an escrow id or a transaction id is required")
		}
		found, err := ledger.GetTransactionEscrows(ctx, transactionId)
		if err != nil {
			return nil, fmt.Errorf("failed to get transaction escrows: %w", err)
		}
		accounts = append(accounts, found...)
	}

	zap.L().Info("Retrieved escrow accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}
