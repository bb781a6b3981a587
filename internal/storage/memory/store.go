package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store объединяет корзины, заказы и outbox одного процесса и реализует domain.Transactor.
//
// Atomically держит мьютекс владельца на всё время fn, а изменения копит в буфере
// и применяет только при успешном завершении fn.
type Store struct {
	carts  *cartRepositoryInMemory
	orders *orderRepositoryInMemory
	outbox *outboxRepositoryInMemory

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		carts:  newCartRepository(),
		orders: newOrderRepository(),
		outbox: NewOutboxRepository(),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Carts возвращает репозиторий корзин вне транзакции (только для чтения в сервисах).
func (s *Store) Carts() domain.CartRepository { return s.carts }

// Orders возвращает репозиторий заказов вне транзакции.
func (s *Store) Orders() domain.OrderRepository { return s.orders }

// Outbox возвращает outbox-репозиторий для воркера публикации.
func (s *Store) Outbox() domain.OutboxRepository { return s.outbox }

// Atomically выполняет fn последовательно для одного владельца.
func (s *Store) Atomically(ctx context.Context, owner string, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	tx := &memoryTx{
		store: s,
		carts: make(map[string]domain.Cart),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

func (s *Store) ownerLock(owner string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[owner] = lock
	}
	return lock
}

// memoryTx — буфер изменений одной атомарной операции.
type memoryTx struct {
	store    *Store
	carts    map[string]domain.Cart
	creates  []domain.Order
	saves    []domain.Order
	messages []domain.OutboxMessage
}

func (tx *memoryTx) Carts() domain.CartRepository   { return txCarts{tx: tx} }
func (tx *memoryTx) Orders() domain.OrderRepository { return txOrders{tx: tx} }
func (tx *memoryTx) Outbox() domain.OutboxRepository {
	return txOutbox{tx: tx}
}

func (tx *memoryTx) commit(ctx context.Context) error {
	// Заказы первыми: это единственный шаг, который может отказать (дубликат ID, версия).
	for _, order := range tx.creates {
		if err := tx.store.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("commit order create: %w", err)
		}
	}
	for _, order := range tx.saves {
		if err := tx.store.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("commit order save: %w", err)
		}
	}
	for _, cart := range tx.carts {
		if err := tx.store.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("commit cart save: %w", err)
		}
	}
	for _, msg := range tx.messages {
		if _, err := tx.store.outbox.Enqueue(ctx, msg); err != nil {
			return fmt.Errorf("commit outbox enqueue: %w", err)
		}
	}
	return nil
}

type txCarts struct{ tx *memoryTx }

func (r txCarts) Get(ctx context.Context, owner string) (domain.Cart, error) {
	if cart, ok := r.tx.carts[owner]; ok {
		return cart.Clone(), nil
	}
	return r.tx.store.carts.Get(ctx, owner)
}

func (r txCarts) Save(_ context.Context, cart domain.Cart) error {
	cart = cart.Clone()
	cart.Recompute()
	r.tx.carts[cart.Owner] = cart
	return nil
}

type txOrders struct{ tx *memoryTx }

func (r txOrders) Create(_ context.Context, order domain.Order) error {
	if r.tx.store.orders.exists(order.ID) {
		return domain.ErrOrderVersionConflict
	}
	for _, staged := range r.tx.creates {
		if staged.ID == order.ID {
			return domain.ErrOrderVersionConflict
		}
	}
	r.tx.creates = append(r.tx.creates, order.Clone())
	return nil
}

func (r txOrders) Get(ctx context.Context, id string) (domain.Order, error) {
	for _, staged := range r.tx.creates {
		if staged.ID == id {
			return staged.Clone(), nil
		}
	}
	return r.tx.store.orders.Get(ctx, id)
}

// ListByOwner читает только зафиксированные заказы.
func (r txOrders) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Order, error) {
	return r.tx.store.orders.ListByOwner(ctx, owner, limit)
}

func (r txOrders) Save(ctx context.Context, order domain.Order) error {
	current, err := r.tx.store.orders.Get(ctx, order.ID)
	if err != nil {
		return err
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	r.tx.saves = append(r.tx.saves, order.Clone())
	return nil
}

type txOutbox struct{ tx *memoryTx }

func (r txOutbox) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	r.tx.messages = append(r.tx.messages, msg)
	return msg, nil
}

func (r txOutbox) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	return r.tx.store.outbox.PullPending(ctx, limit)
}

func (r txOutbox) Stats(ctx context.Context) (domain.OutboxStats, error) {
	return r.tx.store.outbox.Stats(ctx)
}

func (r txOutbox) MarkSent(ctx context.Context, id string) error {
	return r.tx.store.outbox.MarkSent(ctx, id)
}

func (r txOutbox) MarkFailed(ctx context.Context, id string) error {
	return r.tx.store.outbox.MarkFailed(ctx, id)
}

var (
	_ domain.Transactor = (*Store)(nil)
	_ domain.Tx         = (*memoryTx)(nil)
)
