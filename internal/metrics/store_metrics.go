package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics считает изменения корзин и работу кэша.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	cache     *prometheus.CounterVec
}

// NewCartMetrics создаёт метрики корзины в переданном registry (при nil используется registry по умолчанию).
func NewCartMetrics(registerer prometheus.Registerer) *CartMetrics {
	return &CartMetrics{
		mutations: counterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations grouped by operation and result",
		}, "op", "result"),
		cache: counterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_cache_requests_total",
			Help: "Cart cache lookups grouped by result",
		}, "result"),
	}
}

// RecordMutation учитывает изменение корзины.
func (m *CartMetrics) RecordMutation(op string, err error) {
	m.mutations.WithLabelValues(op, resultLabel(err)).Inc()
}

// RecordCache учитывает обращение к кэшу: hit, miss или error.
func (m *CartMetrics) RecordCache(result string) {
	m.cache.WithLabelValues(result).Inc()
}

// OrderMetrics считает переходы заказов и записи истории.
type OrderMetrics struct {
	transitions    *prometheus.CounterVec
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewOrderMetrics создаёт метрики заказов в переданном registry (при nil используется registry по умолчанию).
func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		transitions: counterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order lifecycle changes grouped by event type, actor and result",
		}, "type", "actor", "result"),
		timelineEvents: counter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: counter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_enqueued_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

// RecordTransition учитывает попытку изменить заказ.
func (m *OrderMetrics) RecordTransition(eventType, actor string, err error) {
	m.transitions.WithLabelValues(eventType, actor, resultLabel(err)).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий истории.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
