package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/atelier/internal/notify"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// consumerQueue load-balances order events across server instances so each
// confirmation is sent once.
const consumerQueue = "atelier-notifications"

// NotificationConsumer hands order events from NATS to a handler.
type NotificationConsumer struct {
	conn    *nats.Conn
	handler notify.Handler
	timeout time.Duration
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics

	sub *nats.Subscription
}

func NewNotificationConsumer(conn *nats.Conn, handler notify.Handler, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *NotificationConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationConsumer{
		conn:    conn,
		handler: handler,
		timeout: 30 * time.Second,
		logger:  logger.With("component", "notification_consumer"),
		metrics: metrics,
	}
}

// Start subscribes to order events.
func (c *NotificationConsumer) Start() error {
	sub, err := c.conn.QueueSubscribe(notify.SubjectOrderPlaced, consumerQueue, c.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", notify.SubjectOrderPlaced, err)
	}
	c.sub = sub
	c.logger.Info("notification consumer started", "subject", notify.SubjectOrderPlaced, "queue", consumerQueue)
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (c *NotificationConsumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *NotificationConsumer) handleMessage(msg *nats.Msg) {
	var event notify.OrderPlacedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("discarding malformed order event", "subject", msg.Subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.handler(ctx, event)
	c.metrics.RecordNotification("email", err)
	if err != nil {
		c.logger.Error("order notification failed", "order_id", event.OrderID, "error", err)
		return
	}
	c.logger.Debug("order notification handled", "order_id", event.OrderID)
}
