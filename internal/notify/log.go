package notify

import (
	"context"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"go.uber.org/zap"
)

// Compile-time check: *Log must satisfy escrow.Notifier.
var _ escrow.Notifier = (*Log)(nil)

// Log writes every event to the audit log
type Log struct {
	logger *zap.Logger
}

// NewLog uses the global logger when logger is nil
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.L()
	}
	return &Log{logger: logger.Named("audit")}
}

func (l *Log) Notify(_ context.Context, events []models.EscrowEvent) {
	for _, e := range events {
		l.logger.Info("Escrow event",
			zap.String("event_id", e.Id),
			zap.String("type", string(e.Type)),
			zap.String("escrow_id", e.EscrowId),
			zap.String("transaction_id", e.TransactionId),
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityId),
			zap.String("actor", e.Actor),
			zap.String("amount", e.Amount.String()),
			zap.Time("occurred_at", e.OccurredAt))
	}
}
