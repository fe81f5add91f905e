package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for storefront business events.
// A nil *BusinessMetrics is valid and records nothing, which keeps services
// usable in tests without a registry.
type BusinessMetrics struct {
	// Sales and pricing
	SaleTransitions *prometheus.CounterVec
	PriceSyncs      *prometheus.CounterVec
	LifecycleRuns   *prometheus.CounterVec
	LifecycleTime   prometheus.Histogram

	// Inventory
	StockRejections *prometheus.CounterVec

	// Catalog cascades
	CascadeImagesDeleted *prometheus.CounterVec
	ImageDeleteFailures  *prometheus.CounterVec

	// Orders
	OrdersCreated *prometheus.CounterVec
	OrderValue    prometheus.Histogram

	// Notifications
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
}

// NewBusinessMetrics creates business metrics registered on reg.
// A nil reg registers on the default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "atelier"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Sales and pricing
		// =======================================================================
		SaleTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sale_transitions_total",
				Help:      "Sale status transitions attempted by the lifecycle and admin flows",
			},
			[]string{"to", "outcome"}, // outcome: success, failure
		),
		PriceSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_price_syncs_total",
				Help:      "Product pricing writes made by the pricing synchronizer",
			},
			[]string{"action"}, // action: apply, strip, reprice
		),
		LifecycleRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sale_lifecycle_runs_total",
				Help:      "Sale lifecycle ticks by outcome",
			},
			[]string{"outcome"}, // outcome: ok, partial, skipped, error
		),
		LifecycleTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sale_lifecycle_duration_seconds",
				Help:      "Duration of a sale lifecycle tick",
				Buckets:   prometheus.DefBuckets,
			},
		),

		// =======================================================================
		// Inventory
		// =======================================================================
		StockRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_rejections_total",
				Help:      "Requests rejected because the quantity exceeded available stock",
			},
			[]string{"source"}, // source: cart, order
		),

		// =======================================================================
		// Catalog cascades
		// =======================================================================
		CascadeImagesDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cascade_images_deleted_total",
				Help:      "Images removed from the asset store by cascading deletes",
			},
			[]string{"entity"}, // entity: color, product, product_update
		),
		ImageDeleteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "image_delete_failures_total",
				Help:      "Asset store deletes that failed",
			},
			[]string{"entity"},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Orders placed",
			},
			[]string{"payment_method"},
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Order totals in currency units",
				Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),

		// =======================================================================
		// Notifications
		// =======================================================================
		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_sent_total",
				Help:      "Order notifications delivered",
			},
			[]string{"channel"},
		),
		NotificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_failed_total",
				Help:      "Order notifications that could not be delivered",
			},
			[]string{"channel"},
		),
	}
}

// RecordSaleTransition counts a sale status change attempt.
func (m *BusinessMetrics) RecordSaleTransition(to string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.SaleTransitions.WithLabelValues(to, outcome).Inc()
}

// RecordPriceSync counts a product pricing write.
func (m *BusinessMetrics) RecordPriceSync(action string) {
	if m == nil {
		return
	}
	m.PriceSyncs.WithLabelValues(action).Inc()
}

// RecordLifecycleRun records the outcome and duration of one lifecycle tick.
func (m *BusinessMetrics) RecordLifecycleRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.LifecycleRuns.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.LifecycleTime.Observe(seconds)
	}
}

// RecordStockRejection counts a quantity rejected for lack of stock.
func (m *BusinessMetrics) RecordStockRejection(source string) {
	if m == nil {
		return
	}
	m.StockRejections.WithLabelValues(source).Inc()
}

// RecordImagesDeleted counts images removed by a cascade.
func (m *BusinessMetrics) RecordImagesDeleted(entity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CascadeImagesDeleted.WithLabelValues(entity).Add(float64(n))
}

// RecordImageDeleteFailure counts an asset store delete that failed.
func (m *BusinessMetrics) RecordImageDeleteFailure(entity string) {
	if m == nil {
		return
	}
	m.ImageDeleteFailures.WithLabelValues(entity).Inc()
}

// RecordOrder counts a placed order and observes its value.
func (m *BusinessMetrics) RecordOrder(paymentMethod string, total int64) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(paymentMethod).Inc()
	m.OrderValue.Observe(float64(total))
}

// RecordNotification counts a notification delivery attempt.
func (m *BusinessMetrics) RecordNotification(channel string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationsFailed.WithLabelValues(channel).Inc()
		return
	}
	m.NotificationsSent.WithLabelValues(channel).Inc()
}
