package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOrderRepository_PostgresCreateGetListAndSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, repo.Create(ctx, sampleOrder("order-1", "customer-1", now.Add(-2*time.Minute))))
	require.NoError(t, repo.Create(ctx, sampleOrder("order-2", "customer-1", now.Add(-time.Minute))))
	require.ErrorIs(t, repo.Create(ctx, sampleOrder("order-2", "customer-1", now)), domain.ErrOrderVersionConflict)

	got, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, "customer-1", got.Owner)
	require.Equal(t, domain.OrderStatusConfirmed, got.Status)
	require.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	require.Equal(t, sampleAddress(), got.Address)
	require.NotNil(t, got.Payment)
	require.Equal(t, "pay_abc", got.Payment.RemotePaymentRef)
	require.Len(t, got.Items, 1)
	require.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(500)))
	require.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))

	list, err := repo.ListByOwner(ctx, "customer-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "order-2", list[0].ID)

	got.OverrideStatus(domain.OrderStatusShipped, now)
	require.NoError(t, repo.Save(ctx, got))
	require.True(t, domain.IsVersionConflict(repo.Save(ctx, got)))

	updated, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, updated.Status)
	require.Equal(t, got.Version+1, updated.Version)

	missing := sampleOrder("missing", "customer-1", now)
	require.ErrorIs(t, repo.Save(ctx, missing), domain.ErrOrderNotFound)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCartRepository_PostgresUpsert(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)

	_, err := repo.Get(ctx, "customer-1")
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	cart := domain.NewCart("customer-1", now)
	cart.Upsert(domain.CartItem{ProductID: "P1", Quantity: 3, UnitPrice: decimal.RequireFromString("99.90"), Name: "Mug"}, now)
	require.NoError(t, repo.Save(ctx, cart))

	cart.Upsert(domain.CartItem{ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}, now)
	require.NoError(t, repo.Save(ctx, cart))

	stored, err := repo.Get(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	require.Equal(t, 4, stored.TotalItemCount)
	require.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("309.70")))
}

func TestAddressBookAndCatalog_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `
		INSERT INTO products (id, name, price, sale_price, stock, is_active, primary_image_url)
		VALUES ('P1', 'Lamp', 500, 450, 7, TRUE, 'lamp.png')
	`)
	require.NoError(t, err)

	catalog := NewCatalogReader(store)
	product, err := catalog.GetProduct(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 7, product.Stock)
	require.True(t, product.EffectivePrice().Equal(decimal.NewFromInt(450)))
	_, err = catalog.GetProduct(ctx, "P404")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	book := NewAddressBook(store)
	name, phone, pin, line1, city, state := "Asha Rao", "9800000000", "560001", "12 MG Road", "Bengaluru", "KA"
	input := domain.AddressInput{Fields: domain.AddressPatch{
		FullName: &name, Phone: &phone, Pincode: &pin, Line1: &line1, City: &city, State: &state,
	}}
	_, err = book.UpsertFromCheckout(ctx, "customer-1", input)
	require.NoError(t, err)
	_, err = book.UpsertFromCheckout(ctx, "customer-1", input)
	require.NoError(t, err)

	saved, err := book.List(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)

	landmark := "Near metro"
	addr, err := book.UpsertFromCheckout(ctx, "customer-1", domain.AddressInput{
		AddressID: saved[0].ID,
		Fields:    domain.AddressPatch{Landmark: &landmark},
	})
	require.NoError(t, err)
	require.Equal(t, "Near metro", addr.Landmark)
	require.Equal(t, "Bengaluru", addr.City)

	_, err = book.UpsertFromCheckout(ctx, "customer-2", domain.AddressInput{AddressID: saved[0].ID})
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
}

func TestOutboxAndTimeline_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, NewOrderRepository(store).Create(ctx, sampleOrder("order-1", "customer-1", now)))

	outbox := NewOutboxRepository(store)
	first, err := outbox.Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", AggregateID: "order-1", EventType: "order.created", Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)
	_, err = outbox.Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", AggregateID: "order-1", EventType: "order.cancelled", Payload: []byte(`{"a":2}`)})
	require.NoError(t, err)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)

	pending, err := outbox.PullPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, outbox.MarkSent(ctx, first.ID))
	require.ErrorIs(t, outbox.MarkFailed(ctx, "missing"), domain.ErrOutboxPublish)

	timeline := NewTimelineRepository(store)
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "order-1", Type: domain.TimelineOrderCreated, Occurred: now}))
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "order-1", Type: domain.TimelineAdminStatusOverride, Actor: domain.ActorAdmin, Reason: "SHIPPED", Occurred: now.Add(time.Second)}))

	events, err := timeline.List(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.ActorSystem, events[0].Actor)
	require.Equal(t, domain.ActorAdmin, events[1].Actor)
}

func TestIdempotencyRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)
	ctx := context.Background()
	ttl := time.Now().UTC().Add(time.Hour)

	_, err := repo.CreateProcessing(ctx, "key-1", "hash-1", ttl)
	require.NoError(t, err)

	_, err = repo.CreateProcessing(ctx, "key-1", "hash-1", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	_, err = repo.CreateProcessing(ctx, "key-1", "hash-2", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.NoError(t, repo.MarkDone(ctx, "key-1", []byte(`{"ok":true}`), 201))
	record, err := repo.Get(ctx, "key-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)
	require.Equal(t, 201, record.HTTPStatus)

	_, err = repo.CreateProcessing(ctx, "key-2", "hash", ttl)
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, "key-2"))
	_, err = repo.Get(ctx, "key-2")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)

	_, err = repo.CreateProcessing(ctx, "key-old", "hash", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateProcessing(ctx, "key-old", "other-hash", ttl)
	require.NoError(t, err, "expired key must be reusable")

	deleted, err := repo.DeleteExpired(ctx, time.Now().UTC().Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)
}

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, store.MigrateDown(ctx, 100))
	status, err := store.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, MigrationStatus{Version: 0, Applied: 0, Pending: 2}, status)

	require.NoError(t, store.MigrateUp(ctx, 1))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, MigrationStatus{Version: 1, Applied: 1, Pending: 1}, status)

	require.NoError(t, store.MigrateUp(ctx, 0))
	require.NoError(t, store.MigrateUp(ctx, 0))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, MigrationStatus{Version: 2, Applied: 2, Pending: 0}, status)
}
