package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	// StorageDriverMemory хранит всё в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит корзины, заказы и outbox в PostgreSQL.
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// CatalogFile — JSON-файл с товарами для memory-каталога.
	CatalogFile string

	// AllowMockIntegrations разрешает встроенный платёжный шлюз без ключей Razorpay.
	AllowMockIntegrations bool
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayTimeout       time.Duration
	// PaymentSigningSecret подписывает колбэки встроенного шлюза.
	PaymentSigningSecret string

	KafkaBrokers       []string
	KafkaClientID      string
	KafkaOrderTopic    string
	KafkaCheckoutTopic string
	KafkaDLQTopic      string

	RedisAddr    string
	CartCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending — размер backlog, после которого /healthz сообщает degraded. 0 отключает проверку.
	OutboxMaxPending int

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	AdminToken      string
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		AllowMockIntegrations: true,
		RazorpayTimeout:       10 * time.Second,
		PaymentSigningSecret:  "dev-signing-secret",

		KafkaClientID:      "storefront",
		KafkaOrderTopic:    kafka.TopicOrderEvents,
		KafkaCheckoutTopic: kafka.TopicCheckoutEvents,
		KafkaDLQTopic:      kafka.TopicDeadLetterQueue,

		CartCacheTTL: 10 * time.Minute,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,
		OutboxMaxPending:   1000,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate проверяет согласованность настроек перед запуском.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres storage requires a DSN")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	if !c.razorpayConfigured() && !c.AllowMockIntegrations {
		return fmt.Errorf("razorpay credentials are required when mock integrations are disabled")
	}
	if !c.razorpayConfigured() && c.PaymentSigningSecret == "" {
		return fmt.Errorf("payment signing secret is required for the mock gateway")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}
	return nil
}

func (c Config) razorpayConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}
