package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины неудачного оформления для метки reason.
const (
	ReasonEmptyCart          = "empty_cart"
	ReasonInvalidPayment     = "invalid_payment_details"
	ReasonSignatureMismatch  = "signature_mismatch"
	ReasonGatewayUnavailable = "gateway_unavailable"
	ReasonStorage            = "storage"
	ReasonOther              = "other"
)

// CheckoutMetrics содержит метрики оформления заказа.
type CheckoutMetrics struct {
	initiated prometheus.Counter
	completed prometheus.Counter
	failed    *prometheus.CounterVec

	stepDuration   *prometheus.HistogramVec
	gatewayLatency *prometheus.HistogramVec

	// Оформления между Complete-запросом и коммитом.
	inFlight prometheus.Gauge
}

// NewCheckoutMetrics создаёт метрики в registry по умолчанию.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в переданном registry.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	return &CheckoutMetrics{
		initiated: counter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_initiated_total",
			Help: "Total number of payment intents created for checkout",
		}),
		completed: counter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_completed_total",
			Help: "Total number of orders materialized from verified callbacks",
		}),
		failed: counterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_failed_total",
			Help: "Total number of failed checkout steps grouped by step and reason",
		}, "step", "reason"),
		stepDuration: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_step_duration_seconds",
			Help:    "Duration of checkout steps in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, "step"),
		gatewayLatency: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_payment_gateway_latency_seconds",
			Help:    "Latency of payment gateway calls grouped by provider and result",
			Buckets: prometheus.DefBuckets,
		}, "provider", "result"),
		inFlight: gauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_checkout_in_flight",
			Help: "Number of checkout completions currently in progress",
		}),
	}
}

// RecordInitiated увеличивает счётчик созданных платёжных намерений.
func (m *CheckoutMetrics) RecordInitiated() {
	m.initiated.Inc()
}

// RecordCompleted увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordCompleted() {
	m.completed.Inc()
}

// RecordFailed учитывает неудачный шаг с причиной.
func (m *CheckoutMetrics) RecordFailed(step, reason string) {
	m.failed.WithLabelValues(step, reason).Inc()
}

// RecordStepDuration записывает длительность шага.
func (m *CheckoutMetrics) RecordStepDuration(step string, d time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordGatewayCall записывает задержку вызова провайдера.
func (m *CheckoutMetrics) RecordGatewayCall(provider string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayLatency.WithLabelValues(provider, result).Observe(d.Seconds())
}

// TrackInFlight увеличивает gauge и возвращает функцию, которая его уменьшит.
func (m *CheckoutMetrics) TrackInFlight() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}
