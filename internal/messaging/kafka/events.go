package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события, проходят через transactional outbox
	EventTypeOrderCreated                 EventType = "order.created"
	EventTypeOrderCancelled               EventType = "order.cancelled"
	EventTypeOrderAddressUpdated          EventType = "order.address_updated"
	EventTypeOrderStatusOverridden        EventType = "order.status_overridden"
	EventTypeOrderPaymentStatusOverridden EventType = "order.payment_status_overridden"

	// Checkout события, публикуются напрямую и не влияют на состояние
	EventTypeCheckoutInitiated EventType = "checkout.initiated"
	EventTypeCheckoutCompleted EventType = "checkout.completed"
	EventTypeCheckoutRejected  EventType = "checkout.rejected"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicCheckoutEvents  = "storefront.checkout.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderOriginalTopic = "x-original-topic"
)

// AggregateOrder — тип агрегата outbox-сообщений о заказах.
const AggregateOrder = "order"

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType     EventType `json:"event_type"`
	OrderID       string    `json:"order_id"`
	Owner         string    `json:"owner"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Actor         string    `json:"actor"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewOrderEvent снимает состояние заказа после изменения.
func NewOrderEvent(eventType EventType, order domain.Order, actor domain.Actor, reason string) OrderEvent {
	return OrderEvent{
		EventType:     eventType,
		OrderID:       order.ID,
		Owner:         order.Owner,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Amount:        order.Amount.StringFixed(2),
		Currency:      order.Currency,
		Actor:         string(actor),
		Reason:        reason,
		Timestamp:     order.UpdatedAt.UTC(),
	}
}

// OutboxMessage упаковывает событие для записи в outbox в той же транзакции, что и заказ.
func (e OrderEvent) OutboxMessage() (domain.OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal %s event: %w", e.EventType, err)
	}
	return domain.OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   e.OrderID,
		EventType:     string(e.EventType),
		Payload:       payload,
	}, nil
}

// CheckoutEvent представляет шаг оформления заказа
type CheckoutEvent struct {
	EventType      EventType `json:"event_type"`
	Owner          string    `json:"owner"`
	RemoteOrderRef string    `json:"remote_order_ref,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	AmountMinor    int64     `json:"amount_minor,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewCheckoutEvent создает событие оформления
func NewCheckoutEvent(eventType EventType, owner string) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		Owner:     owner,
		Timestamp: time.Now().UTC(),
	}
}
