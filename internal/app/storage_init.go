package app

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Store — атомарное хранилище корзин, заказов и outbox.
type Store interface {
	domain.Transactor
	Carts() domain.CartRepository
	Orders() domain.OrderRepository
	Outbox() domain.OutboxRepository
}

// storage собирает репозитории выбранного драйвера.
type storage struct {
	store       Store
	catalog     domain.CatalogReader
	addresses   domain.AddressBook
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	ping  func(ctx context.Context) error
	close func() error
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storage, error) {
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		return initPostgres(ctx, cfg, logger)
	case StorageDriverMemory, "":
		return initMemory(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initMemory(cfg Config, logger *log.Entry) (*storage, error) {
	catalog := memory.NewCatalog()
	if cfg.CatalogFile != "" {
		products, err := loadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			catalog.Put(p)
		}
		logger.WithFields(log.Fields{
			"file":     cfg.CatalogFile,
			"products": len(products),
		}).Info("catalog loaded")
	}

	logger.Warn("using in-memory storage, data is lost on restart")
	return &storage{
		store:       memory.NewStore(),
		catalog:     catalog,
		addresses:   memory.NewAddressBook(),
		timeline:    memory.NewTimelineRepository(),
		idempotency: memory.NewIdempotencyRepository(),
		ping:        func(context.Context) error { return nil },
		close:       func() error { return nil },
	}, nil
}

func initPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*storage, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		status, err := store.Status(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.WithFields(log.Fields{
			"version": status.Version,
			"applied": status.Applied,
		}).Info("postgres migrations applied")
	}

	return &storage{
		store:       store,
		catalog:     postgres.NewCatalogReader(store),
		addresses:   postgres.NewAddressBook(store),
		timeline:    postgres.NewTimelineRepository(store),
		idempotency: postgres.NewIdempotencyRepository(store),
		ping:        store.Ping,
		close:       store.Close,
	}, nil
}

func loadCatalogFile(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	products, err := memory.LoadProducts(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog file %s: %w", path, err)
	}
	return products, nil
}
