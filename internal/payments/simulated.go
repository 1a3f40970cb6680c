package payments

import (
	"context"
	"fmt"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check: *Simulated must satisfy escrow.PaymentExecutor.
var _ escrow.PaymentExecutor = (*Simulated)(nil)

// Simulated stands in for a bank transfer. It waits for the configured latency
// and returns a generated reference.
type Simulated struct {
	latency time.Duration
	nowFn   func() time.Time
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{latency: latency, nowFn: time.Now}
}

func (s *Simulated) ExecuteRelease(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	if req.Recipient.Id == "" {
		return nil, fmt.Errorf("release %s has no recipient", req.ReleaseId)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("release %s has non-positive amount %s", req.ReleaseId, req.Amount.String())
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("simulated transfer interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.PaymentResult{
		Reference:  "SIM-" + uuid.New().String(),
		ExecutedAt: s.nowFn(),
	}
	zap.L().Info("Simulated transfer executed",
		zap.String("escrow_id", req.EscrowId),
		zap.String("release_id", req.ReleaseId),
		zap.String("recipient", req.Recipient.Id),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
		zap.String("reference", result.Reference))
	return result, nil
}
