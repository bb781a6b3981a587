// Package checkout превращает оплаченную корзину в заказ.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	stepInitiate = "initiate"
	stepVerify   = "verify"
	stepCommit   = "commit"

	// Razorpay ограничивает receipt 40 символами.
	maxReceiptLen = 40
)

// Storage — хранилище с атомарной границей по владельцу.
type Storage interface {
	domain.Transactor
	Carts() domain.CartRepository
}

// CartInvalidator сбрасывает закэшированную корзину после оформления.
type CartInvalidator interface {
	Invalidate(ctx context.Context, owner string)
}

// EventPublisher публикует события оформления (например, *kafka.Producer).
type EventPublisher interface {
	PublishEvent(topic string, key string, event any) error
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics задаёт метрики оформления.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTimeline подключает историю заказов.
func WithTimeline(timeline domain.TimelineRepository) Option {
	return func(o *Orchestrator) { o.timeline = timeline }
}

// WithCartInvalidator подключает сброс кэша корзины.
func WithCartInvalidator(carts CartInvalidator) Option {
	return func(o *Orchestrator) { o.carts = carts }
}

// WithEventPublisher подключает публикацию checkout-событий.
func WithEventPublisher(events EventPublisher) Option {
	return func(o *Orchestrator) { o.events = events }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов заказов.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// Orchestrator проводит покупателя от корзины до оплаченного заказа.
type Orchestrator struct {
	store     Storage
	gateway   domain.PaymentGateway
	addresses domain.AddressBook
	timeline  domain.TimelineRepository
	carts     CartInvalidator
	events    EventPublisher
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
	now       func() time.Time
	newID     func() string
}

// NewOrchestrator создаёт оркестратор оформления.
func NewOrchestrator(store Storage, gateway domain.PaymentGateway, addresses domain.AddressBook, options ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		gateway:   gateway,
		addresses: addresses,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, option := range options {
		option(o)
	}
	if o.logger == nil {
		o.logger = log.WithField("component", "checkout")
	}
	return o
}

// Initiate создаёт платёжное намерение на сумму корзины. Корзина и заказы не меняются.
func (o *Orchestrator) Initiate(ctx context.Context, owner string) (domain.RemoteIntent, error) {
	start := time.Now()
	defer o.observeStep(stepInitiate, start)

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.RemoteIntent{}, domain.ErrOwnerRequired
	}

	cart, err := currentCart(ctx, o.store.Carts(), owner)
	if err != nil {
		o.fail(stepInitiate, err)
		return domain.RemoteIntent{}, err
	}
	if cart.IsEmpty() {
		o.fail(stepInitiate, domain.ErrEmptyCart)
		return domain.RemoteIntent{}, domain.ErrEmptyCart
	}

	amountMinor := cart.AmountMinor()
	callStart := time.Now()
	intent, err := o.gateway.CreateIntent(ctx, amountMinor, domain.CurrencyINR, receiptRef(owner))
	if o.metrics != nil {
		o.metrics.RecordGatewayCall(o.gateway.Provider(), err, time.Since(callStart))
	}
	if err != nil {
		o.fail(stepInitiate, err)
		o.logger.WithError(err).WithFields(log.Fields{
			"owner":        owner,
			"amount_minor": amountMinor,
			"provider":     o.gateway.Provider(),
		}).Warn("payment intent creation failed")
		return domain.RemoteIntent{}, err
	}

	if o.metrics != nil {
		o.metrics.RecordInitiated()
	}
	event := kafka.NewCheckoutEvent(kafka.EventTypeCheckoutInitiated, owner)
	event.RemoteOrderRef = intent.ID
	event.AmountMinor = intent.AmountMinor
	event.Currency = intent.Currency
	o.publish(owner, event)

	o.logger.WithFields(log.Fields{
		"owner":            owner,
		"remote_order_ref": intent.ID,
		"amount_minor":     intent.AmountMinor,
	}).Info("payment intent created")
	return intent, nil
}

// Complete проверяет подпись callback и в одной атомарной операции сохраняет адрес,
// создаёт заказ и очищает корзину. Повторный callback получит ErrEmptyCart.
func (o *Orchestrator) Complete(ctx context.Context, owner string, callback domain.PaymentCallback, address domain.AddressInput) (domain.Order, error) {
	start := time.Now()
	if o.metrics != nil {
		done := o.metrics.TrackInFlight()
		defer done()
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return domain.Order{}, domain.ErrOwnerRequired
	}

	if err := callback.Validate(); err != nil {
		o.fail(stepVerify, err)
		return domain.Order{}, err
	}

	ok, err := o.gateway.VerifySignature(callback.RemoteOrderRef, callback.RemotePaymentRef, callback.RemoteSignature)
	if err != nil {
		o.fail(stepVerify, err)
		return domain.Order{}, err
	}
	if !ok {
		o.fail(stepVerify, domain.ErrSignatureMismatch)
		o.logger.WithFields(log.Fields{
			"owner":              owner,
			"remote_order_ref":   callback.RemoteOrderRef,
			"remote_payment_ref": callback.RemotePaymentRef,
			"provider":           o.gateway.Provider(),
		}).Error("payment callback signature mismatch")

		event := kafka.NewCheckoutEvent(kafka.EventTypeCheckoutRejected, owner)
		event.RemoteOrderRef = callback.RemoteOrderRef
		event.Reason = metrics.ReasonSignatureMismatch
		o.publish(owner, event)
		return domain.Order{}, domain.ErrSignatureMismatch
	}
	o.observeStep(stepVerify, start)

	commitStart := time.Now()
	var order domain.Order
	err = o.store.Atomically(ctx, owner, func(ctx context.Context, tx domain.Tx) error {
		cart, err := currentCart(ctx, tx.Carts(), owner)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		shipping, err := o.addresses.UpsertFromCheckout(ctx, owner, address)
		if err != nil {
			return fmt.Errorf("save address: %w", err)
		}

		now := o.now()
		order = domain.NewOrderFromCart(o.newID(), cart, shipping, domain.PaymentRecord{
			Provider:         o.gateway.Provider(),
			RemoteOrderRef:   callback.RemoteOrderRef,
			RemotePaymentRef: callback.RemotePaymentRef,
			RemoteSignature:  callback.RemoteSignature,
			VerifiedAt:       now,
		}, now)
		if problems := order.ValidateInvariants(); len(problems) > 0 {
			return fmt.Errorf("order invariants: %w", errors.Join(problems...))
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		cart.Empty(now)
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		msg, err := kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order, domain.ActorShopper, "").OutboxMessage()
		if err != nil {
			return err
		}
		if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
			return fmt.Errorf("enqueue order event: %w", err)
		}
		return nil
	})
	o.observeStep(stepCommit, commitStart)
	if err != nil {
		o.fail(stepCommit, err)
		entry := o.logger.WithError(err).WithFields(log.Fields{
			"owner":            owner,
			"remote_order_ref": callback.RemoteOrderRef,
		})
		if domain.IsClientError(err) {
			entry.Info("checkout completion rejected")
		} else {
			entry.Error("checkout completion failed")
		}
		return domain.Order{}, err
	}

	o.afterCommit(ctx, order)
	return order, nil
}

func (o *Orchestrator) afterCommit(ctx context.Context, order domain.Order) {
	if o.carts != nil {
		o.carts.Invalidate(ctx, order.Owner)
	}
	if o.timeline != nil {
		err := o.timeline.Append(context.WithoutCancel(ctx), domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     domain.TimelineOrderCreated,
			Actor:    domain.ActorShopper,
			Reason:   "payment verified",
			Occurred: order.CreatedAt,
		})
		if err != nil {
			o.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to append timeline event")
		}
	}
	if o.metrics != nil {
		o.metrics.RecordCompleted()
	}

	event := kafka.NewCheckoutEvent(kafka.EventTypeCheckoutCompleted, order.Owner)
	event.OrderID = order.ID
	event.RemoteOrderRef = order.Payment.RemoteOrderRef
	event.AmountMinor = order.AmountMinor()
	event.Currency = order.Currency
	o.publish(order.Owner, event)

	o.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"owner":    order.Owner,
		"amount":   order.Amount.StringFixed(2),
		"items":    len(order.Items),
	}).Info("order created from verified payment")
}

func (o *Orchestrator) publish(owner string, event *kafka.CheckoutEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishEvent(kafka.TopicCheckoutEvents, owner, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"owner":      owner,
			"event_type": event.EventType,
		}).Warn("failed to publish checkout event to kafka")
	}
}

func (o *Orchestrator) fail(step string, err error) {
	if o.metrics != nil {
		o.metrics.RecordFailed(step, failureReason(err))
	}
}

func (o *Orchestrator) observeStep(step string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(step, time.Since(start))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return metrics.ReasonEmptyCart
	case errors.Is(err, domain.ErrInvalidPaymentDetails):
		return metrics.ReasonInvalidPayment
	case errors.Is(err, domain.ErrSignatureMismatch):
		return metrics.ReasonSignatureMismatch
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return metrics.ReasonGatewayUnavailable
	case errors.Is(err, domain.ErrStorageUnavailable):
		return metrics.ReasonStorage
	default:
		return metrics.ReasonOther
	}
}

// currentCart читает корзину; отсутствующая корзина считается пустой.
func currentCart(ctx context.Context, carts domain.CartRepository, owner string) (domain.Cart, error) {
	cart, err := carts.Get(ctx, owner)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.NewCart(owner, time.Time{}), nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// receiptRef обрезает квитанцию до maxReceiptLen байт по границе символа.
func receiptRef(owner string) string {
	receipt := "cart_" + owner
	if len(receipt) <= maxReceiptLen {
		return receipt
	}
	cut := 0
	for i := range receipt {
		if i > maxReceiptLen {
			break
		}
		cut = i
	}
	return receipt[:cut]
}
