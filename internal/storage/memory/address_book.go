package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// addressBookInMemory хранит адреса покупателей.
type addressBookInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.SavedAddress
}

// NewAddressBook создаёт in-memory адресную книгу.
func NewAddressBook() domain.AddressBook {
	return &addressBookInMemory{items: make(map[string]domain.SavedAddress)}
}

func (b *addressBookInMemory) UpsertFromCheckout(_ context.Context, owner string, input domain.AddressInput) (domain.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()

	if input.AddressID != "" {
		saved, ok := b.items[input.AddressID]
		if !ok || saved.Owner != owner {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		addr, err := input.Resolve(saved.Address)
		if err != nil {
			return domain.Address{}, err
		}
		saved.Address = addr
		saved.UpdatedAt = now
		b.items[saved.ID] = saved
		return addr, nil
	}

	addr, err := input.Resolve(domain.Address{})
	if err != nil {
		return domain.Address{}, err
	}

	// Повторно введённый адрес не плодит дубликаты.
	for id, saved := range b.items {
		if saved.Owner == owner && saved.Address == addr {
			saved.UpdatedAt = now
			b.items[id] = saved
			return addr, nil
		}
	}

	id := uuid.NewString()
	b.items[id] = domain.SavedAddress{
		ID:        id,
		Owner:     owner,
		Address:   addr,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return addr, nil
}

func (b *addressBookInMemory) List(_ context.Context, owner string) ([]domain.SavedAddress, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]domain.SavedAddress, 0)
	for _, saved := range b.items {
		if saved.Owner == owner {
			result = append(result, saved)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ domain.AddressBook = (*addressBookInMemory)(nil)
