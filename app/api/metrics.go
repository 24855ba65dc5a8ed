package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's Prometheus collectors.
type Metrics struct {
	OrdersCreated    prometheus.Counter
	CheckoutFailures *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	PaymentRequests  *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of successfully placed orders.",
		}),
		CheckoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_failures_total",
			Help: "Count of rejected checkouts by reason.",
		}, []string{"reason"}),
		CheckoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Duration of the order placement transaction in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		PaymentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_requests_total",
			Help: "Count of STK push attempts by outcome.",
		}, []string{"outcome"}),
	}
}
