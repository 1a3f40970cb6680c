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

const (
	// Escrow account queries
	queryInsertAccount = `
		INSERT INTO escrow_accounts (id, transaction_id, property_id, status, currency, balance, document, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAccount = `
		SELECT document, version
		FROM escrow_accounts
		WHERE id = ?`

	queryListAccountsByTransaction = `
		SELECT document, version
		FROM escrow_accounts
		WHERE transaction_id = ?
		ORDER BY created_at, id`

	queryUpdateAccount = `
		UPDATE escrow_accounts
		SET status = ?, balance = ?, document = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryAccountExists = `
		SELECT COUNT(1) FROM escrow_accounts WHERE id = ?`

	// Movement queries
	queryInsertMovement = `
		INSERT INTO escrow_movements (id, escrow_id, movement_type, amount, balance_before, balance_after, currency, reference, counterparty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetMovements = `
		SELECT id, escrow_id, movement_type, amount, balance_before, balance_after, currency, reference, counterparty, created_at
		FROM escrow_movements
		WHERE escrow_id = ?
		ORDER BY created_at, rowid`

	// Journal queries
	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, movement_id, account_type, account_id, debit_amount, credit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetJournalEntries = `
		SELECT j.id, j.movement_id, j.account_type, j.account_id, j.debit_amount, j.credit_amount, j.created_at
		FROM journal_entries j
		JOIN escrow_movements m ON m.id = j.movement_id
		WHERE m.escrow_id = ?
		ORDER BY j.created_at, j.rowid`
)
