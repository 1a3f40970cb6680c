package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Compile-time check: *Nats must satisfy escrow.Notifier.
var _ escrow.Notifier = (*Nats)(nil)

const DefaultSubjectPrefix = "propie.escrow"

// publisher is the part of *nats.Conn the notifier needs
type publisher interface {
	Publish(subject string, data []byte) error
}

// Nats publishes each event as JSON on <prefix>.<event_type>, e.g.
// propie.escrow.funds_released
type Nats struct {
	conn   publisher
	prefix string
	close  func()
}

// NewNats connects to the NATS server at url
func NewNats(url, prefix string) (*Nats, error) {
	conn, err := nats.Connect(url,
		nats.Name("propie-escrow"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			zap.L().Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	zap.L().Info("Connected to NATS", zap.String("url", url))
	n := newNats(conn, prefix)
	n.close = func() {
		if err := conn.Drain(); err != nil {
			zap.L().Warn("Failed to drain NATS connection", zap.Error(err))
		}
	}
	return n, nil
}

func newNats(conn publisher, prefix string) *Nats {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Nats{conn: conn, prefix: strings.TrimSuffix(prefix, "."), close: func() {}}
}

func (n *Nats) Notify(_ context.Context, events []models.EscrowEvent) {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			zap.L().Error("Failed to encode escrow event",
				zap.String("event_id", e.Id),
				zap.Error(err))
			continue
		}
		subject := n.Subject(e.Type)
		if err := n.conn.Publish(subject, payload); err != nil {
			zap.L().Error("Failed to publish escrow event",
				zap.String("subject", subject),
				zap.String("event_id", e.Id),
				zap.Error(err))
		}
	}
}

func (n *Nats) Subject(eventType models.EventType) string {
	return n.prefix + "." + strings.ToLower(string(eventType))
}

func (n *Nats) Close() {
	n.close()
}
