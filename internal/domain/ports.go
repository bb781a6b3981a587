package domain

import (
	"context"
	"time"
)

// CatalogReader — каталог товаров, доступный только на чтение.
type CatalogReader interface {
	// GetProduct возвращает товар или ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (Product, error)
}

// AddressBook хранит переиспользуемые адреса покупателя.
type AddressBook interface {
	// UpsertFromCheckout сохраняет (или обновляет выбранный) адрес и возвращает снимок для заказа.
	UpsertFromCheckout(ctx context.Context, owner string, input AddressInput) (Address, error)
	// List возвращает адреса покупателя, последние изменённые первыми.
	List(ctx context.Context, owner string) ([]SavedAddress, error)
}

// PaymentGateway — адаптер внешнего платёжного провайдера. Состояния и повторов нет.
type PaymentGateway interface {
	// Provider возвращает код провайдера для записи в заказ.
	Provider() string
	// CreateIntent создаёт платёжное намерение; проблемы авторизации/конфигурации → ErrGatewayUnavailable.
	CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (RemoteIntent, error)
	// VerifySignature проверяет подпись callback. false при несовпадении, ошибка при некорректном вводе.
	VerifySignature(remoteOrderRef, remotePaymentRef, remoteSignature string) (bool, error)
}

// CartRepository хранит корзины по владельцу.
type CartRepository interface {
	// Get возвращает корзину или ErrCartNotFound.
	Get(ctx context.Context, owner string) (Cart, error)
	// Save сохраняет корзину целиком.
	Save(ctx context.Context, cart Cart) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByOwner возвращает заказы покупателя, новые первыми, с опциональным ограничением.
	ListByOwner(ctx context.Context, owner string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// Tx — репозитории внутри атомарной границы одного покупателя.
type Tx interface {
	Carts() CartRepository
	Orders() OrderRepository
	Outbox() OutboxRepository
}

// Transactor выполняет fn так, что для одного владельца изменения видны целиком или не видны вовсе,
// а параллельные вызовы для того же владельца выполняются последовательно.
type Transactor interface {
	Atomically(ctx context.Context, owner string, fn func(ctx context.Context, tx Tx) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	// Release удаляет незавершённую запись, чтобы запрос можно было повторить.
	Release(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
