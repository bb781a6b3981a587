package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	q querier
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository вне транзакции.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{q: store.DB()}
}

func (r *cartRepository) Get(ctx context.Context, owner string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		cart  domain.Cart
		items []byte
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT owner, items, created_at, updated_at
		FROM carts
		WHERE owner = $1
	`, owner).Scan(&cart.Owner, &items, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, storageErr("select cart", err)
	}

	if cart.Items, err = decodeCartItems(items); err != nil {
		return domain.Cart{}, err
	}
	// Итоги в таблице служат для отчётов; в домен они попадают только через пересчёт.
	cart.Recompute()
	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cart.Recompute()
	items, err := encodeCartItems(cart.Items)
	if err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO carts (owner, items, total_item_count, total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (owner) DO UPDATE
		SET items = EXCLUDED.items,
		    total_item_count = EXCLUDED.total_item_count,
		    total_amount = EXCLUDED.total_amount,
		    updated_at = EXCLUDED.updated_at
	`, cart.Owner, items, cart.TotalItemCount, cart.TotalAmount, cart.CreatedAt, cart.UpdatedAt); err != nil {
		return storageErr("upsert cart", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
