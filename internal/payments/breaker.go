package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Compile-time check: *Breaker must satisfy escrow.PaymentExecutor.
var _ escrow.PaymentExecutor = (*Breaker)(nil)

// ErrPaymentsUnavailable is returned without calling the backend while the breaker is open
var ErrPaymentsUnavailable = errors.New("payment backend unavailable")

type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker stays open before letting one probe through
	OpenTimeout time.Duration
}

// Breaker guards a payment backend with a circuit breaker
type Breaker struct {
	next escrow.PaymentExecutor
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next escrow.PaymentExecutor, cfg BreakerConfig) *Breaker {
	failures := cfg.ConsecutiveFailures
	if failures <= 0 {
		failures = 5
	}
	name := cfg.Name
	if name == "" {
		name = "payments"
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			zap.L().Warn("Payment circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) ExecuteRelease(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.ExecuteRelease(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentsUnavailable, err)
		}
		return nil, err
	}
	return result.(*models.PaymentResult), nil
}

// State reports the breaker state, e.g. "closed" or "open"
func (b *Breaker) State() string {
	return b.cb.State().String()
}
