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
	"strings"
	"time"

	"propie-escrow-go/internal/common"
	"propie-escrow-go/internal/config"
	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func validateFlags(transactionId, propertyId, deposit string) (decimal.Decimal, error) {
	if strings.TrimSpace(transactionId) == "" {
		return decimal.Zero, fmt.Errorf("transaction id cannot be empty")
	}
	if strings.TrimSpace(propertyId) == "" {
		return decimal.Zero, fmt.Errorf("property id cannot be empty")
	}
	if deposit == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(deposit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid deposit amount %q: %w", deposit, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("deposit amount must be positive")
	}
	return amount, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	templateFlag := flag.String("template", "irish-new-build", "Template name from the templates file")
	transactionFlag := flag.String("transaction", "", "Property transaction id (required)")
	propertyFlag := flag.String("property", "", "Property id (required)")
	depositFlag := flag.String("deposit", "", "Optional initial deposit amount")
	depositorFlag := flag.String("depositor", "buyer", "Participant key making the initial deposit")
	flag.Parse()

	depositAmount, err := validateFlags(*transactionFlag, *propertyFlag, *depositFlag)
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	templates, err := common.LoadTemplates(cfg.Escrow.TemplatesFile)
	if err != nil {
		logger.Fatal("Failed to load templates", zap.Error(err))
	}
	tmpl, err := common.FindTemplate(templates, *templateFlag)
	if err != nil {
		logger.Fatal("Unknown template", zap.Error(err))
	}

	input, err := tmpl.ToInput(*transactionFlag, *propertyFlag, time.Now())
	if err != nil {
		logger.Fatal("Invalid template", zap.String("template", tmpl.Name), zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	account, err := services.Ledger.CreateAccount(ctx, input)
	if err != nil {
		logger.Fatal("Failed to create escrow account", zap.Error(err))
	}
	fmt.Printf("✓ Created escrow %s from template %s\n", account.Id, tmpl.Name)

	if depositAmount.IsPositive() {
		fund, err := services.Ledger.DepositFunds(ctx, account.Id, models.DepositInput{
			Amount:      depositAmount,
			DepositedBy: *depositorFlag,
			Source:      models.FundSourceBuyerDeposit,
			Purpose:     "initial deposit",
		})
		if err != nil {
			logger.Fatal("Failed to deposit funds", zap.String("escrow_id", account.Id), zap.Error(err))
		}
		fmt.Printf("✓ Deposited %s %s (fund %s)\n", fund.Amount.StringFixed(2), fund.Currency, fund.Id)
	}

	account, err = services.Ledger.GetEscrowAccount(ctx, account.Id)
	if err != nil || account == nil {
		logger.Fatal("Failed to reload escrow account", zap.Error(err))
	}
	summary := escrow.Summarize(account)
	common.PrintAccount(account, summary)
	common.PrintFooter("Escrow account ready", common.WideWidth)
}
