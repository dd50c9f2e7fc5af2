package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout, payment and delivery outcomes. A nil
// *OrderMetrics is valid and records nothing.
type OrderMetrics struct {
	ordersPlaced     *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	paymentsApplied  *prometheus.CounterVec
	paymentsRejected *prometheus.CounterVec
	gatewayDuration  *prometheus.HistogramVec
	deliveries       prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders created by checkout.",
		}, []string{"payment_method"}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_failures_total",
			Help: "Checkout attempts rejected before or during order assembly.",
		}, []string{"reason"}),
		paymentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payments_applied_total",
			Help: "Orders transitioned to paid.",
		}, []string{"flow", "payment_method"}),
		paymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payments_rejected_total",
			Help: "Payment attempts that did not mark an order paid.",
		}, []string{"flow", "reason"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Latency of payment provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_delivered_total",
			Help: "Orders marked delivered.",
		}),
	}
	reg.MustRegister(m.ordersPlaced, m.checkoutFailures, m.paymentsApplied, m.paymentsRejected, m.gatewayDuration, m.deliveries)
	return m
}

func (m *OrderMetrics) OrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) CheckoutFailed(reason string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) PaymentApplied(flow, paymentMethod string) {
	if m == nil || m.paymentsApplied == nil {
		return
	}
	m.paymentsApplied.WithLabelValues(normalizeLabel(flow), normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) PaymentRejected(flow, reason string) {
	if m == nil || m.paymentsRejected == nil {
		return
	}
	m.paymentsRejected.WithLabelValues(normalizeLabel(flow), normalizeLabel(reason)).Inc()
}

// ObserveGateway records how long a provider call took.
func (m *OrderMetrics) ObserveGateway(provider, operation string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

func (m *OrderMetrics) OrderDelivered() {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
