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

package main

import (
	"context"
	"flag"
	"fmt"

	"propie-escrow-go/internal/common"
	"propie-escrow-go/internal/config"
	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"go.uber.org/zap"
)

type reportStats struct {
	accounts   int
	unbalanced int
}

func processAccount(ctx context.Context, ledger *escrow.Ledger, account *models.EscrowAccount, logger *zap.Logger) (bool, error) {
	common.PrintAccount(account, escrow.Summarize(account))

	recon, err := ledger.ReconcileBalance(ctx, account.Id)
	if err != nil {
		return false, fmt.Errorf("failed to reconcile: %w", err)
	}
	if !recon.Balanced {
		logger.Warn("Escrow balance drift detected",
			zap.String("escrow_id", account.Id),
			zap.String("stored", recon.StoredBalance.String()),
			zap.String("funds", recon.FundBalance.String()),
			zap.String("journal", recon.JournalBalance.String()))
		fmt.Printf("✗ Balance drift: stored %s, funds %s, journal %s\n",
			recon.StoredBalance.String(), recon.FundBalance.String(), recon.JournalBalance.String())
	}
	return recon.Balanced, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	escrowFlag := flag.String("escrow", "", "Escrow account id")
	transactionFlag := flag.String("transaction", "", "Report every escrow of a transaction")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	accounts, err := common.LoadEscrows(ctx, services.Ledger, *escrowFlag, *transactionFlag)
	if err != nil {
		logger.Fatal("Failed to load escrow accounts", zap.Error(err))
	}

	stats := reportStats{}
	for _, account := range accounts {
		stats.accounts++
		balanced, err := processAccount(ctx, services.Ledger, account, logger)
		if err != nil {
			logger.Error("Failed to process escrow",
				zap.String("escrow_id", account.Id),
				zap.Error(err))
			continue
		}
		if !balanced {
			stats.unbalanced++
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d escrow accounts, %d with balance drift", stats.accounts, stats.unbalanced), common.WideWidth)
	logger.Info("Escrow summary completed",
		zap.Int("accounts", stats.accounts),
		zap.Int("unbalanced", stats.unbalanced))
}
