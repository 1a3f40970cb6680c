package notify

import (
	"context"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"
)

// Compile-time check: *Multi must satisfy escrow.Notifier.
var _ escrow.Notifier = (*Multi)(nil)

// Multi fans events out to every notifier in order
type Multi struct {
	notifiers []escrow.Notifier
}

func NewMulti(notifiers ...escrow.Notifier) *Multi {
	var kept []escrow.Notifier
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept}
}

func (m *Multi) Notify(ctx context.Context, events []models.EscrowEvent) {
	for _, n := range m.notifiers {
		n.Notify(ctx, events)
	}
}
