package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics считает запросы к HTTP API по шаблону маршрута.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	replays  prometheus.Counter
}

// NewHTTPMetrics создаёт HTTP-метрики в переданном registry (при nil используется registry по умолчанию).
func NewHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: counterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests grouped by method, route and status code",
		}, "method", "route", "code"),
		duration: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency grouped by method and route",
			Buckets: prometheus.DefBuckets,
		}, "method", "route"),
		replays: counter(registerer, prometheus.CounterOpts{
			Name: "storefront_http_idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		}),
	}
}

// Observe записывает завершённый запрос.
func (m *HTTPMetrics) Observe(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordReplay учитывает ответ, повторённый по Idempotency-Key.
func (m *HTTPMetrics) RecordReplay() {
	m.replays.Inc()
}
