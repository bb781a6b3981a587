// Package cache содержит Redis-кэш корзин для чтения.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrCacheMiss означает, что корзины нет в кэше.
var ErrCacheMiss = errors.New("cart cache miss")

const (
	defaultBaseTTL = 15 * time.Minute
	maxJitter      = 5 * time.Minute
)

// CartCache кэширует корзины по владельцу. Источником истины остаётся хранилище:
// сервис корзины удаляет запись после каждого изменения.
type CartCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

// NewCartCache создаёт кэш; ttl<=0 заменяется значением по умолчанию.
func NewCartCache(client redis.UniversalClient, ttl time.Duration) *CartCache {
	if ttl <= 0 {
		ttl = defaultBaseTTL
	}
	return &CartCache{client: client, baseTTL: ttl}
}

type cachedItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type cachedCart struct {
	Owner     string       `json:"owner"`
	Items     []cachedItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Get возвращает корзину из кэша или ErrCacheMiss.
func (c *CartCache) Get(ctx context.Context, owner string) (domain.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, ErrCacheMiss
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedCart
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	cart := domain.Cart{
		Owner:     cached.Owner,
		Items:     make([]domain.CartItem, 0, len(cached.Items)),
		CreatedAt: cached.CreatedAt,
		UpdatedAt: cached.UpdatedAt,
	}
	for _, item := range cached.Items {
		cart.Items = append(cart.Items, domain.CartItem(item))
	}
	cart.Recompute()
	return cart, nil
}

// Set кладёт корзину с TTL и случайным разбросом, чтобы записи не истекали одновременно.
func (c *CartCache) Set(ctx context.Context, cart domain.Cart) error {
	cached := cachedCart{
		Owner:     cart.Owner,
		Items:     make([]cachedItem, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		cached.Items = append(cached.Items, cachedItem(item))
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := c.baseTTL + rand.N(maxJitter)
	if err := c.client.Set(ctx, cacheKey(cart.Owner), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete удаляет корзину из кэша.
func (c *CartCache) Delete(ctx context.Context, owner string) error {
	if err := c.client.Del(ctx, cacheKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis для health-check.
func (c *CartCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func cacheKey(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}
