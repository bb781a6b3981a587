package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Dependencies содержит собранные компоненты приложения.
type Dependencies struct {
	Store   Store
	Gateway domain.PaymentGateway

	Cart     *cart.Service
	Checkout *checkout.Orchestrator
	Orders   *order.Service

	OutboxWorker  *outbox.Worker
	CleanupWorker *idempotency.CleanupWorker

	HTTPHandler http.Handler
	Health      *health.Handler

	storage  *storage
	producer *kafka.Producer
	redis    redis.UniversalClient
	logger   *log.Entry
}

// NewDependencies создаёт хранилище, внешние клиенты и сервисы по конфигурации.
// Метрики регистрируются в registerer.
func NewDependencies(ctx context.Context, cfg Config, registerer prometheus.Registerer, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStorage(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Store:   st.store,
		Gateway: newPaymentGateway(cfg, logger),
		storage: st,
		logger:  logger,
	}

	cartCache, redisClient := initCartCache(ctx, cfg.RedisAddr, cfg.CartCacheTTL, logger)
	deps.redis = redisClient
	deps.producer = initKafkaProducer(cfg.KafkaBrokers, cfg.KafkaClientID, logger)

	cartOptions := []cart.Option{
		cart.WithLogger(log.WithField("component", "cart-service")),
		cart.WithMetrics(metrics.NewCartMetrics(registerer)),
	}
	if cartCache != nil {
		cartOptions = append(cartOptions, cart.WithCache(cartCache))
	}
	deps.Cart = cart.NewService(st.store, st.catalog, cartOptions...)

	checkoutOptions := []checkout.Option{
		checkout.WithLogger(log.WithField("component", "checkout")),
		checkout.WithMetrics(metrics.NewCheckoutMetricsWithRegisterer(registerer)),
		checkout.WithTimeline(st.timeline),
		checkout.WithCartInvalidator(deps.Cart),
	}
	if deps.producer != nil {
		checkoutOptions = append(checkoutOptions, checkout.WithEventPublisher(topicPublisher{
			producer: deps.producer,
			topic:    cfg.KafkaCheckoutTopic,
		}))
	}
	deps.Checkout = checkout.NewOrchestrator(st.store, deps.Gateway, st.addresses, checkoutOptions...)

	deps.Orders = order.NewService(st.store, st.timeline,
		order.WithLogger(log.WithField("component", "order-service")),
		order.WithMetrics(metrics.NewOrderMetrics(registerer)),
	)

	deps.OutboxWorker = newOutboxWorker(cfg, st.store.Outbox(), deps.producer, registerer)
	deps.CleanupWorker = idempotency.NewCleanupWorker(st.idempotency,
		idempotency.WithLogger(log.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
		idempotency.WithMetrics(metrics.NewCleanupMetrics(registerer)),
	)

	deps.HTTPHandler = httpapi.NewRouter(httpapi.Dependencies{
		Cart:           deps.Cart,
		Checkout:       deps.Checkout,
		Orders:         deps.Orders,
		Addresses:      st.addresses,
		Catalog:        st.catalog,
		Idempotency:    st.idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		AdminToken:     cfg.AdminToken,
		Logger:         log.WithField("component", "http-api"),
		Metrics:        metrics.NewHTTPMetrics(registerer),
	})

	deps.Health = deps.newHealthHandler(cfg)
	return deps, nil
}

func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, registerer prometheus.Registerer) *outbox.Worker {
	logger := log.WithField("component", "outbox-worker")
	options := []outbox.Option{
		outbox.WithLogger(logger),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		outbox.WithMetrics(metrics.NewOutboxMetrics(registerer)),
	}

	var publisher domain.OutboxPublisher = outbox.NewLogPublisher(logger)
	if producer != nil {
		publisher = kafka.NewOutboxPublisher(producer, cfg.KafkaOrderTopic)
		options = append(options, outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic)))
	}
	return outbox.NewWorker(repo, publisher, options...)
}

// newHealthHandler регистрирует проверки: хранилище обязательно, Redis, Kafka и backlog outbox — нет.
func (d *Dependencies) newHealthHandler(cfg Config) *health.Handler {
	h := health.NewHandler(version.GetVersion())
	h.RegisterChecker("storage", health.NewSimpleChecker("storage", d.storage.ping))

	if d.redis != nil {
		h.RegisterChecker("redis", health.NewOptionalChecker("redis", func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		}))
	}
	if d.producer != nil {
		h.RegisterChecker("kafka", health.NewOptionalChecker("kafka", d.producer.Check))
	}
	if cfg.OutboxMaxPending > 0 {
		h.RegisterChecker("outbox", health.NewOptionalChecker("outbox", func(ctx context.Context) error {
			return checkOutboxBacklog(ctx, d.Store.Outbox(), cfg.OutboxMaxPending)
		}))
	}
	return h
}

// Close освобождает внешние подключения в обратном порядке.
func (d *Dependencies) Close() {
	closeKafka(d.producer, d.logger)
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.storage != nil {
		if err := d.storage.close(); err != nil {
			d.logger.WithError(err).Warn("failed to close storage")
		}
	}
}

// topicPublisher привязывает producer к топику событий оформления.
type topicPublisher struct {
	producer *kafka.Producer
	topic    string
}

func (p topicPublisher) PublishEvent(_ string, key string, event any) error {
	return p.producer.PublishEvent(p.topic, key, event)
}
