package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/atelier/internal/telemetry"
)

// handlerTimeout bounds a single in-process delivery.
const handlerTimeout = 30 * time.Second

// LogNotifier records events in the log and, when given a handler, delivers
// them in the background. It stands in for NATS when NATS_URL is unset.
type LogNotifier struct {
	handler Handler
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
	wg      sync.WaitGroup
}

// NewLogNotifier creates a notifier. handler may be nil.
func NewLogNotifier(handler Handler, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		handler: handler,
		logger:  logger.With("component", "notify"),
		metrics: metrics,
	}
}

func (n *LogNotifier) OrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	n.logger.Info("order placed",
		"order_id", event.OrderID,
		"user_id", event.UserID,
		"total", event.Total,
		"items", len(event.Items),
	)
	if n.handler == nil {
		return nil
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// Detached from the request so the response doesn't wait on SMTP.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
		defer cancel()

		err := n.handler(ctx, event)
		n.metrics.RecordNotification("local", err)
		if err != nil {
			n.logger.Error("order notification failed", "order_id", event.OrderID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until background deliveries have finished.
func (n *LogNotifier) Wait() {
	n.wg.Wait()
}
