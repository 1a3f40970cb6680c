package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"propie-escrow-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvents() []models.EscrowEvent {
	account := &models.EscrowAccount{Id: "esc-1", TransactionId: "txn-1", Currency: "EUR"}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.EscrowEvent{
		{Id: "ev-1", Type: models.EventFundsDeposited, EscrowId: "esc-1", TransactionId: "txn-1",
			EntityType: "fund", EntityId: "f-1", Actor: "p-buyer", Amount: decimal.NewFromInt(15000), OccurredAt: at, Account: account},
		{Id: "ev-2", Type: models.EventFundsReleased, EscrowId: "esc-1", TransactionId: "txn-1",
			EntityType: "release", EntityId: "r-1", Actor: "system", Amount: decimal.RequireFromString("10000.50"), OccurredAt: at, Account: account},
	}
}

func TestLog_WritesAuditEntries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	notifier := NewLog(zap.New(core))

	notifier.Notify(context.Background(), sampleEvents())

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 2)
	fields := entries[1].ContextMap()
	assert.Equal(t, "FUNDS_RELEASED", fields["type"])
	assert.Equal(t, "esc-1", fields["escrow_id"])
	assert.Equal(t, "10000.5", fields["amount"])
}

type capturePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *capturePublisher) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestNats_PublishesJsonPerEvent(t *testing.T) {
	pub := &capturePublisher{}
	notifier := newNats(pub, "propie.escrow.")

	notifier.Notify(context.Background(), sampleEvents())

	assert.Equal(t, []string{"propie.escrow.funds_deposited", "propie.escrow.funds_released"}, pub.subjects)

	var decoded models.EscrowEvent
	require.NoError(t, json.Unmarshal(pub.payloads[1], &decoded))
	assert.Equal(t, "r-1", decoded.EntityId)
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("10000.50")))
}

func TestNats_PublishErrorIsLoggedNotPropagated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	defer undo()

	notifier := newNats(&capturePublisher{err: errors.New("nats: connection closed")}, "")
	notifier.Notify(context.Background(), sampleEvents())

	assert.Equal(t, 2, logs.FilterMessage("Failed to publish escrow event").Len())
	assert.Equal(t, "propie.escrow.dispute_raised", notifier.Subject(models.EventDisputeRaised))
}

func TestMetrics_CountsEventsAndAmounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	metrics.Notify(context.Background(), sampleEvents())
	metrics.Notify(context.Background(), sampleEvents()[:1])

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.events.WithLabelValues("FUNDS_DEPOSITED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.events.WithLabelValues("FUNDS_RELEASED")))
	assert.Equal(t, float64(30000), testutil.ToFloat64(metrics.deposited.WithLabelValues("EUR")))
	assert.InDelta(t, 10000.50, testutil.ToFloat64(metrics.released.WithLabelValues("EUR")), 0.001)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration")
}

type countingNotifier struct{ seen int }

func (c *countingNotifier) Notify(_ context.Context, events []models.EscrowEvent) {
	c.seen += len(events)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	multi := NewMulti(a, nil, b)

	multi.Notify(context.Background(), sampleEvents())

	assert.Equal(t, 2, a.seen)
	assert.Equal(t, 2, b.seen)
}
