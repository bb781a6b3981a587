// Package order отвечает за жизненный цикл оформленных заказов.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxSaveAttempts  = 3
)

// Storage — хранилище заказов с атомарной границей по владельцу.
type Storage interface {
	domain.Transactor
	Orders() domain.OrderRepository
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics задаёт метрики заказов.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service реализует чтение заказов, действия покупателя и административные override.
type Service struct {
	store    Storage
	timeline domain.TimelineRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(store Storage, timeline domain.TimelineRepository, options ...Option) *Service {
	s := &Service{
		store:    store,
		timeline: timeline,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-service")
	}
	return s
}

// Get возвращает заказ покупателя. Чужой заказ неотличим от несуществующего.
func (s *Service) Get(ctx context.Context, owner, id string) (domain.Order, error) {
	order, err := s.store.Orders().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	if order.Owner != owner {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// AdminGet возвращает любой заказ.
func (s *Service) AdminGet(ctx context.Context, id string) (domain.Order, error) {
	return s.store.Orders().Get(ctx, strings.TrimSpace(id))
}

// List возвращает заказы покупателя, новые первыми.
func (s *Service) List(ctx context.Context, owner string, limit int) ([]domain.Order, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, domain.ErrOwnerRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	return s.store.Orders().ListByOwner(ctx, owner, limit)
}

// Timeline возвращает историю заказа покупателя.
func (s *Service) Timeline(ctx context.Context, owner, id string) ([]domain.TimelineEvent, error) {
	order, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(ctx, order.ID)
}

// Cancel отменяет заказ из PENDING или CONFIRMED. Статус платежа не меняется.
func (s *Service) Cancel(ctx context.Context, owner, id, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by customer"
	}

	order, err := s.change(ctx, owner, id, change{
		timelineType: domain.TimelineOrderCancelled,
		eventType:    kafka.EventTypeOrderCancelled,
		actor:        domain.ActorShopper,
		reason:       reason,
		apply: func(o *domain.Order, now time.Time) error {
			return o.Cancel(now)
		},
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"owner":    owner,
		"reason":   reason,
	}).Info("order cancelled by customer")
	return order, nil
}

// UpdateAddress сливает патч с адресом заказа из PENDING или CONFIRMED.
func (s *Service) UpdateAddress(ctx context.Context, owner, id string, patch domain.AddressPatch) (domain.Order, error) {
	if patch.IsEmpty() {
		return domain.Order{}, fmt.Errorf("%w: no fields to update", domain.ErrInvalidAddress)
	}

	order, err := s.change(ctx, owner, id, change{
		timelineType: domain.TimelineOrderAddressUpdated,
		eventType:    kafka.EventTypeOrderAddressUpdated,
		actor:        domain.ActorShopper,
		reason:       "shipping address updated",
		apply: func(o *domain.Order, now time.Time) error {
			if err := o.UpdateAddress(patch, now); err != nil {
				return err
			}
			return o.Address.Validate()
		},
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"owner":    owner,
	}).Info("order address updated by customer")
	return order, nil
}

// SetStatus устанавливает статус заказа без проверки графа переходов.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.OrderStatus, reason string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: order status %q", domain.ErrInvalidStatus, status)
	}

	var previous domain.OrderStatus
	order, err := s.adminChange(ctx, id, change{
		timelineType: domain.TimelineAdminStatusOverride,
		eventType:    kafka.EventTypeOrderStatusOverridden,
		actor:        domain.ActorAdmin,
		reason:       adminReason(reason, fmt.Sprintf("status set to %s", status)),
		apply: func(o *domain.Order, now time.Time) error {
			previous = o.OverrideStatus(status, now)
			return nil
		},
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"audit":    "admin_override",
		"order_id": order.ID,
		"owner":    order.Owner,
		"field":    "status",
		"previous": previous,
		"current":  order.Status,
		"forward":  previous.IsForward(order.Status),
		"reason":   reason,
	}).Warn("admin overrode order status")
	return order, nil
}

// SetPaymentStatus устанавливает статус оплаты без проверок.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, reason string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: payment status %q", domain.ErrInvalidStatus, status)
	}

	var previous domain.PaymentStatus
	order, err := s.adminChange(ctx, id, change{
		timelineType: domain.TimelineAdminPaymentStatusOverride,
		eventType:    kafka.EventTypeOrderPaymentStatusOverridden,
		actor:        domain.ActorAdmin,
		reason:       adminReason(reason, fmt.Sprintf("payment status set to %s", status)),
		apply: func(o *domain.Order, now time.Time) error {
			previous = o.OverridePaymentStatus(status, now)
			return nil
		},
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"audit":    "admin_override",
		"order_id": order.ID,
		"owner":    order.Owner,
		"field":    "payment_status",
		"previous": previous,
		"current":  order.PaymentStatus,
		"reason":   reason,
	}).Warn("admin overrode payment status")
	return order, nil
}

// change — изменение заказа вместе с записями в outbox и историю.
type change struct {
	timelineType string
	eventType    kafka.EventType
	actor        domain.Actor
	reason       string
	apply        func(o *domain.Order, now time.Time) error
}

// change применяет изменение к заказу покупателя.
func (s *Service) change(ctx context.Context, owner, id string, c change) (domain.Order, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Order{}, domain.ErrOwnerRequired
	}
	order, err := s.commit(ctx, owner, strings.TrimSpace(id), c, func(o domain.Order) error {
		if o.Owner != owner {
			return domain.ErrOrderNotFound
		}
		return nil
	})
	s.record(c, err)
	return order, err
}

// adminChange находит владельца заказа и применяет изменение в его атомарной границе.
func (s *Service) adminChange(ctx context.Context, id string, c change) (domain.Order, error) {
	id = strings.TrimSpace(id)
	current, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		s.record(c, err)
		return domain.Order{}, err
	}
	order, err := s.commit(ctx, current.Owner, id, c, nil)
	s.record(c, err)
	return order, err
}

func (s *Service) commit(ctx context.Context, owner, id string, c change, check func(domain.Order) error) (domain.Order, error) {
	var (
		order domain.Order
		err   error
	)
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		err = s.store.Atomically(ctx, owner, func(ctx context.Context, tx domain.Tx) error {
			current, err := tx.Orders().Get(ctx, id)
			if err != nil {
				return err
			}
			if check != nil {
				if err := check(current); err != nil {
					return err
				}
			}

			if err := c.apply(&current, s.now()); err != nil {
				return err
			}
			if err := tx.Orders().Save(ctx, current); err != nil {
				return err
			}
			current.Version++

			msg, err := kafka.NewOrderEvent(c.eventType, current, c.actor, c.reason).OutboxMessage()
			if err != nil {
				return err
			}
			if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
				return fmt.Errorf("enqueue %s: %w", c.eventType, err)
			}
			order = current
			return nil
		})
		if !domain.IsVersionConflict(err) {
			break
		}
		s.logger.WithFields(log.Fields{
			"order_id": id,
			"attempt":  attempt,
		}).Debug("order version conflict, retrying")
	}
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
	s.appendTimeline(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     c.timelineType,
		Actor:    c.actor,
		Reason:   c.reason,
		Occurred: order.UpdatedAt,
	})
	return order, nil
}

func (s *Service) appendTimeline(ctx context.Context, event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"type":     event.Type,
		}).Warn("failed to append timeline event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

func (s *Service) record(c change, err error) {
	if s.metrics != nil {
		s.metrics.RecordTransition(c.timelineType, string(c.actor), err)
	}
	if err != nil && !domain.IsClientError(err) && !errors.Is(err, context.Canceled) {
		s.logger.WithError(err).WithFields(log.Fields{
			"type":  c.timelineType,
			"actor": c.actor,
		}).Error("order change failed")
	}
}

func adminReason(reason, fallback string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return fallback
}
