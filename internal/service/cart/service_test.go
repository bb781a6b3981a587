package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func product(id string, price string, stock int) domain.Product {
	return domain.Product{
		ID:              id,
		Name:            "Product " + id,
		Price:           decimal.RequireFromString(price),
		Stock:           stock,
		Active:          true,
		PrimaryImageURL: "https://cdn.example/" + id + ".jpg",
	}
}

type fixture struct {
	store   *memory.Store
	catalog *memory.Catalog
	service *cart.Service
}

func newFixture(t *testing.T, options ...cart.Option) fixture {
	t.Helper()

	store := memory.NewStore()
	catalog := memory.NewCatalog(
		product("p-1", "100.00", 10),
		product("p-2", "49.99", 3),
	)
	options = append([]cart.Option{cart.WithLogger(loggerForTests())}, options...)
	return fixture{
		store:   store,
		catalog: catalog,
		service: cart.NewService(store, catalog, options...),
	}
}

func TestGet_CreatesEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, "cust-1", got.Owner)
	require.Empty(t, got.Items)
	require.Equal(t, 0, got.TotalItemCount)
	require.True(t, got.TotalAmount.IsZero())

	stored, err := f.store.Carts().Get(ctx, "cust-1")
	require.NoError(t, err, "empty cart must be persisted")
	require.Equal(t, "cust-1", stored.Owner)
}

func TestGet_RequiresOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Get(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrOwnerRequired)
}

func TestSetItem(t *testing.T) {
	cases := []struct {
		name      string
		productID string
		quantity  int
		prepare   func(*memory.Catalog)
		wantErr   error
		wantCount int
		wantTotal string
	}{
		{name: "adds line", productID: "p-1", quantity: 2, wantCount: 2, wantTotal: "200"},
		{name: "exact stock", productID: "p-2", quantity: 3, wantCount: 3, wantTotal: "149.97"},
		{name: "over stock", productID: "p-2", quantity: 4, wantErr: domain.ErrInsufficientStock},
		{name: "unknown product", productID: "missing", quantity: 1, wantErr: domain.ErrProductNotFound},
		{
			name:      "inactive product",
			productID: "p-1",
			quantity:  1,
			prepare: func(c *memory.Catalog) {
				p := product("p-1", "100.00", 10)
				p.Active = false
				c.Put(p)
			},
			wantErr: domain.ErrProductNotFound,
		},
		{
			name:      "sale price wins when lower",
			productID: "p-1",
			quantity:  1,
			prepare: func(c *memory.Catalog) {
				p := product("p-1", "100.00", 10)
				p.SalePrice = decimal.NewNullDecimal(decimal.RequireFromString("80.00"))
				c.Put(p)
			},
			wantCount: 1,
			wantTotal: "80",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.prepare != nil {
				tc.prepare(f.catalog)
			}

			got, err := f.service.SetItem(context.Background(), "cust-1", tc.productID, tc.quantity)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.True(t, domain.IsClientError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCount, got.TotalItemCount)
			require.True(t, decimal.RequireFromString(tc.wantTotal).Equal(got.TotalAmount), "total %s", got.TotalAmount)
		})
	}
}

func TestSetItem_FailureDoesNotMutateCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 2)
	require.NoError(t, err)

	_, err = f.service.SetItem(ctx, "cust-1", "p-1", 11)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, 2, got.Items[0].Quantity)
}

func TestSetItem_SnapshotIsFixed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 1)
	require.NoError(t, err)

	f.catalog.Put(product("p-1", "150.00", 10))

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("100").Equal(got.Items[0].UnitPrice))

	ref := got.Items[0].Ref()
	snapshot, ok := ref.Snapshot()
	require.True(t, ok)
	require.Equal(t, "Product p-1", snapshot.Name)
}

func TestSetItem_ZeroQuantityRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 2)
	require.NoError(t, err)
	_, err = f.service.SetItem(ctx, "cust-1", "p-2", 1)
	require.NoError(t, err)

	got, err := f.service.SetItem(ctx, "cust-1", "p-1", 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, "p-2", got.Items[0].ProductID)
	require.Equal(t, 1, got.TotalItemCount)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)

	got, err := f.service.RemoveItem(context.Background(), "cust-1", "p-404")
	require.NoError(t, err)
	require.Empty(t, got.Items)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 3)
	require.NoError(t, err)

	got, err := f.service.Clear(ctx, "cust-1")
	require.NoError(t, err)
	require.Empty(t, got.Items)
	require.Equal(t, 0, got.TotalItemCount)
	require.True(t, got.TotalAmount.IsZero())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.catalog.Put(product("p-3", "10.00", 5))
	for id, qty := range map[string]int{"p-1": 2, "p-2": 3, "p-3": 1} {
		_, err := f.service.SetItem(ctx, "cust-1", id, qty)
		require.NoError(t, err)
	}

	f.catalog.Put(product("p-1", "90.00", 10))
	f.catalog.Put(product("p-2", "49.99", 1))
	inactive := product("p-3", "10.00", 5)
	inactive.Active = false
	f.catalog.Put(inactive)

	got, report, err := f.service.Refresh(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, []string{"p-3"}, report.Removed)
	require.Equal(t, []string{"p-2"}, report.Capped)
	require.Equal(t, []string{"p-1"}, report.Repriced)

	require.Len(t, got.Items, 2)
	require.Equal(t, 3, got.TotalItemCount)
	require.True(t, decimal.RequireFromString("229.99").Equal(got.TotalAmount), "total %s", got.TotalAmount)
}

type failingCatalog struct{ err error }

func (c failingCatalog) GetProduct(context.Context, string) (domain.Product, error) {
	return domain.Product{}, c.err
}

func TestRefresh_CatalogErrorLeavesCartUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 2)
	require.NoError(t, err)

	broken := cart.NewService(f.store, failingCatalog{err: domain.ErrStorageUnavailable}, cart.WithLogger(loggerForTests()))
	_, _, err = broken.Refresh(ctx, "cust-1")
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)

	stored, err := f.store.Carts().Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.Equal(t, 2, stored.Items[0].Quantity)
}

func TestConcurrentSetItemIsLinearizable(t *testing.T) {
	f := newFixture(t)
	f.catalog.Put(product("p-big", "1.00", 1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			if _, err := f.service.SetItem(ctx, "cust-1", "p-big", qty); err != nil {
				t.Errorf("set item %d: %v", qty, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, got.Items[0].Quantity, got.TotalItemCount)
}

func TestCache_InvalidatedAfterMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cartCache := cache.NewCartCache(client, time.Minute)
	f := newFixture(t, cart.WithCache(cartCache))
	ctx := context.Background()

	_, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("cart:cust-1"), "cart should be cached after first read")

	_, err = f.service.SetItem(ctx, "cust-1", "p-1", 1)
	require.NoError(t, err)
	require.False(t, mr.Exists("cart:cust-1"), "mutation must drop cached cart")

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalItemCount)
}

// racingCache — кэш в памяти, который перед записью запускает изменение той же корзины.
type racingCache struct {
	mu        sync.Mutex
	carts     map[string]domain.Cart
	beforeSet func()
}

func (c *racingCache) Get(_ context.Context, owner string) (domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[owner]
	if !ok {
		return domain.Cart{}, cache.ErrCacheMiss
	}
	return cart.Clone(), nil
}

func (c *racingCache) Set(_ context.Context, cart domain.Cart) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[cart.Owner] = cart.Clone()
	return nil
}

func (c *racingCache) Delete(_ context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, owner)
	return nil
}

func TestCache_FillDoesNotOverwriteConcurrentMutation(t *testing.T) {
	racing := &racingCache{carts: make(map[string]domain.Cart)}
	f := newFixture(t, cart.WithCache(racing))
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 1)
	require.NoError(t, err)

	mutated := make(chan error, 1)
	racing.beforeSet = func() {
		go func() {
			_, err := f.service.SetItem(ctx, "cust-1", "p-1", 2)
			mutated <- err
		}()
		// Изменение либо ждёт блокировки владельца, либо успевает завершиться.
		select {
		case err := <-mutated:
			mutated <- err
		case <-time.After(50 * time.Millisecond):
		}
	}

	_, err = f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.NoError(t, <-mutated)

	stored, err := f.store.Carts().Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, 2, stored.TotalItemCount)

	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, stored.TotalItemCount, got.TotalItemCount, "cache must not serve a cart older than the store")
	require.True(t, stored.TotalAmount.Equal(got.TotalAmount))
}

func TestCache_FailureFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, cart.WithCache(cache.NewCartCache(client, time.Minute)))
	ctx := context.Background()

	_, err := f.service.SetItem(ctx, "cust-1", "p-1", 1)
	require.NoError(t, err)

	mr.SetError("redis down")
	got, err := f.service.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalItemCount)
}

func TestStorageErrorIsReturned(t *testing.T) {
	store := &brokenStore{Store: memory.NewStore(), err: domain.ErrStorageUnavailable}
	service := cart.NewService(store, memory.NewCatalog(product("p-1", "1.00", 1)), cart.WithLogger(loggerForTests()))

	_, err := service.SetItem(context.Background(), "cust-1", "p-1", 1)
	require.True(t, errors.Is(err, domain.ErrStorageUnavailable))
	require.True(t, domain.IsUpstreamError(err))
}

type brokenStore struct {
	*memory.Store
	err error
}

func (s *brokenStore) Atomically(context.Context, string, func(context.Context, domain.Tx) error) error {
	return s.err
}
