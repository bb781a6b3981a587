package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory хранит корзины по владельцу.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart
}

// NewCartRepository создаёт in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return newCartRepository()
}

func newCartRepository() *cartRepositoryInMemory {
	return &cartRepositoryInMemory{items: make(map[string]domain.Cart)}
}

func (r *cartRepositoryInMemory) Get(_ context.Context, owner string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.items[owner]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (r *cartRepositoryInMemory) Save(_ context.Context, cart domain.Cart) error {
	cart = cart.Clone()
	cart.Recompute()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cart.Owner] = cart
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
