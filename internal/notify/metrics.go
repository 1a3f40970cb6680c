package notify

import (
	"context"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time check: *Metrics must satisfy escrow.Notifier.
var _ escrow.Notifier = (*Metrics)(nil)

// Metrics counts escrow events and the money moving through them
type Metrics struct {
	events    *prometheus.CounterVec
	deposited *prometheus.CounterVec
	released  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propie",
			Subsystem: "escrow",
			Name:      "events_total",
			Help:      "Escrow events by type.",
		}, []string{"type"}),
		deposited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propie",
			Subsystem: "escrow",
			Name:      "deposited_amount_total",
			Help:      "Amount deposited into escrow accounts.",
		}, []string{"currency"}),
		released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propie",
			Subsystem: "escrow",
			Name:      "released_amount_total",
			Help:      "Amount released from escrow accounts.",
		}, []string{"currency"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.deposited, m.released} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Notify(_ context.Context, events []models.EscrowEvent) {
	for _, e := range events {
		m.events.WithLabelValues(string(e.Type)).Inc()

		currency := "unknown"
		if e.Account != nil {
			currency = e.Account.Currency
		}
		amount := e.Amount.InexactFloat64()
		switch e.Type {
		case models.EventFundsDeposited:
			m.deposited.WithLabelValues(currency).Add(amount)
		case models.EventFundsReleased:
			m.released.WithLabelValues(currency).Add(amount)
		}
	}
}
