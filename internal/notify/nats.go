package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/atelier/internal/telemetry"
)

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("atelier"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON on SubjectOrderPlaced.
type NATSNotifier struct {
	conn    Publisher
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
}

func NewNATSNotifier(conn Publisher, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{
		conn:    conn,
		logger:  logger.With("component", "notify"),
		metrics: metrics,
	}
}

func (n *NATSNotifier) OrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	err = n.conn.Publish(SubjectOrderPlaced, data)
	n.metrics.RecordNotification("nats", err)
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	n.logger.Debug("order event published", "order_id", event.OrderID, "subject", SubjectOrderPlaced)
	return nil
}
