package domain

import "time"

// Типы событий истории заказа.
const (
	TimelineOrderCreated               = "OrderCreated"
	TimelineOrderCancelled             = "OrderCancelled"
	TimelineOrderAddressUpdated        = "OrderAddressUpdated"
	TimelineAdminStatusOverride        = "AdminStatusOverride"
	TimelineAdminPaymentStatusOverride = "AdminPaymentStatusOverride"
)

// Actor — кто инициировал изменение заказа.
type Actor string

const (
	ActorShopper Actor = "shopper"
	ActorAdmin   Actor = "admin"
	ActorSystem  Actor = "system"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Actor    Actor
	Reason   string
	Occurred time.Time
}
