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

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Formance must satisfy escrow.PaymentExecutor.
var _ escrow.PaymentExecutor = (*Formance)(nil)

const defaultLedgerName = "propie-escrow"

// currencyPrecision maps ISO currency codes to their minor unit precision.
var currencyPrecision = map[string]int{
	"EUR": 2,
	"GBP": 2,
	"USD": 2,
}

// Formance executes releases as transfers on a Formance Stack ledger
type Formance struct {
	client *v3.Formance
	ledger string
	nowFn  func() time.Time
}

// NewFormance connects to the stack and creates the ledger if it doesn't already exist.
func NewFormance(ctx context.Context, cfg models.FormanceConfig) (*Formance, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	f := &Formance{client: client, ledger: cfg.LedgerName, nowFn: time.Now}
	if err := f.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance payments initialized", zap.String("ledger", cfg.LedgerName))
	return f, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (f *Formance) ensureLedger(ctx context.Context) error {
	_, err := f.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: f.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "propie-escrow",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", f.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", f.ledger))
	return nil
}

// numscriptRelease moves released money out of the escrow holding account.
// The holding account mirrors deposits kept by the escrow ledger, so it may
// run into overdraft on the Formance side.
const numscriptRelease = `vars {
  asset $asset
  number $amount
  account $escrow_id
  account $recipient_id
  string $transaction_id
  string $release_id
  string $recipient_type
  string $amount_human
  string $reason
}

send [$asset $amount] (
  source = @escrow:$escrow_id allowing unbounded overdraft
  destination = @participants:$recipient_id
)

set_tx_meta("event_type", "escrow_release")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("release_id", $release_id)
set_tx_meta("recipient_type", $recipient_type)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("reason", $reason)
`

// ExecuteRelease posts the release transfer. The release id is the
// transaction reference, so a retried release is answered with CONFLICT and
// treated as already executed.
func (f *Formance) ExecuteRelease(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	postTx, err := buildReleaseTransaction(req)
	if err != nil {
		return nil, err
	}

	_, err = f.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            f.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Warn("Release already recorded in Formance",
				zap.String("escrow_id", req.EscrowId),
				zap.String("release_id", req.ReleaseId))
		} else {
			return nil, fmt.Errorf("error recording release transfer: %w", err)
		}
	}

	zap.L().Info("Release transfer recorded in Formance",
		zap.String("escrow_id", req.EscrowId),
		zap.String("release_id", req.ReleaseId),
		zap.String("recipient", req.Recipient.Id),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency))

	return &models.PaymentResult{
		Reference:  fmt.Sprintf("formance:%s:%s", f.ledger, req.ReleaseId),
		ExecutedAt: f.nowFn(),
	}, nil
}

func buildReleaseTransaction(req models.PaymentRequest) (shared.V2PostTransaction, error) {
	amount, err := smallestUnits(req.Amount, req.Currency)
	if err != nil {
		return shared.V2PostTransaction{}, fmt.Errorf("release %s: %w", req.ReleaseId, err)
	}
	return shared.V2PostTransaction{
		Reference: strPtr(req.ReleaseId),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptRelease,
			Vars: map[string]string{
				"asset":          formanceAsset(req.Currency),
				"amount":         amount,
				"escrow_id":      req.EscrowId,
				"recipient_id":   req.Recipient.Id,
				"transaction_id": req.TransactionId,
				"release_id":     req.ReleaseId,
				"recipient_type": string(req.Recipient.Type),
				"amount_human":   req.Amount.String(),
				"reason":         req.Reason,
			},
		},
	}, nil
}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation, e.g. "EUR/2".
func formanceAsset(currency string) string {
	return fmt.Sprintf("%s/%d", currency, precisionFor(currency))
}

func precisionFor(currency string) int {
	if p, ok := currencyPrecision[currency]; ok {
		return p
	}
	return 2
}

// smallestUnits converts an amount to minor units, e.g. 10.5 EUR -> "1050".
// Amounts finer than the currency precision are rejected, never truncated.
func smallestUnits(amount decimal.Decimal, currency string) (string, error) {
	shifted := amount.Shift(int32(precisionFor(currency)))
	if !shifted.Equal(shifted.Truncate(0)) {
		return "", fmt.Errorf("amount %s %s has more than %d decimal places", amount.String(), currency, precisionFor(currency))
	}
	return shifted.BigInt().String(), nil
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
