package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `id, owner, items, amount, currency, status, payment_status, address, payment, version, created_at, updated_at`

type orderRepository struct {
	q querier
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository вне транзакции.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{q: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := encodeOrderItems(order.Items)
	if err != nil {
		return err
	}
	address, err := encodeAddress(order.Address)
	if err != nil {
		return err
	}
	payment, err := encodePayment(order.Payment)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		order.ID, order.Owner, items, order.Amount, order.Currency,
		string(order.Status), string(order.PaymentStatus), address, payment,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return storageErr("insert order", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, storageErr("select order", err)
	}
	return order, nil
}

func (r *orderRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner = $1 ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $2", owner, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, owner)
	}
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate order rows", err)
	}

	return orders, nil
}

// Save обновляет изменяемые поля заказа. Позиции, сумма и валюта после создания не меняются.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	address, err := encodeAddress(order.Address)
	if err != nil {
		return err
	}
	payment, err := encodePayment(order.Payment)
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    address = $3,
		    payment = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
	`,
		string(order.Status),
		string(order.PaymentStatus),
		address,
		payment,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return storageErr("update order", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

func (r *orderRepository) exists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, storageErr("check order exists", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                   domain.Order
		status, paymentStatus   string
		items, address, payment []byte
	)
	if err := row.Scan(
		&order.ID, &order.Owner, &items, &order.Amount, &order.Currency,
		&status, &paymentStatus, &address, &payment,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)

	var err error
	if order.Items, err = decodeOrderItems(items); err != nil {
		return domain.Order{}, err
	}
	if order.Address, err = decodeAddress(address); err != nil {
		return domain.Order{}, err
	}
	if order.Payment, err = decodePayment(payment); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
