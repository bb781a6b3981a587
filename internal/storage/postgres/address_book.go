package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type addressBook struct {
	db *sql.DB
}

// NewAddressBook создаёт адресную книгу поверх таблицы addresses.
func NewAddressBook(store *Store) domain.AddressBook {
	return &addressBook{db: store.DB()}
}

func (b *addressBook) UpsertFromCheckout(ctx context.Context, owner string, input domain.AddressInput) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()

	if input.AddressID != "" {
		var raw []byte
		err := b.db.QueryRowContext(ctx, `
			SELECT address FROM addresses WHERE id = $1 AND owner = $2
		`, input.AddressID, owner).Scan(&raw)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Address{}, domain.ErrAddressNotFound
			}
			return domain.Address{}, storageErr("select address", err)
		}
		base, err := decodeAddress(raw)
		if err != nil {
			return domain.Address{}, err
		}
		addr, err := input.Resolve(base)
		if err != nil {
			return domain.Address{}, err
		}
		encoded, err := encodeAddress(addr)
		if err != nil {
			return domain.Address{}, err
		}
		if _, err := b.db.ExecContext(ctx, `
			UPDATE addresses SET address = $1, updated_at = $2 WHERE id = $3
		`, encoded, now, input.AddressID); err != nil {
			return domain.Address{}, storageErr("update address", err)
		}
		return addr, nil
	}

	addr, err := input.Resolve(domain.Address{})
	if err != nil {
		return domain.Address{}, err
	}
	encoded, err := encodeAddress(addr)
	if err != nil {
		return domain.Address{}, err
	}

	// Совпадающий адрес только поднимается наверх списка.
	res, err := b.db.ExecContext(ctx, `
		UPDATE addresses SET updated_at = $1 WHERE owner = $2 AND address = $3::jsonb
	`, now, owner, encoded)
	if err != nil {
		return domain.Address{}, storageErr("touch address", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return addr, nil
	}

	if _, err := b.db.ExecContext(ctx, `
		INSERT INTO addresses (id, owner, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.NewString(), owner, encoded, now, now); err != nil {
		return domain.Address{}, storageErr("insert address", err)
	}
	return addr, nil
}

func (b *addressBook) List(ctx context.Context, owner string) ([]domain.SavedAddress, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, owner, address, created_at, updated_at
		FROM addresses
		WHERE owner = $1
		ORDER BY updated_at DESC, id ASC
	`, owner)
	if err != nil {
		return nil, storageErr("list addresses", err)
	}
	defer rows.Close()

	result := make([]domain.SavedAddress, 0)
	for rows.Next() {
		var (
			saved domain.SavedAddress
			raw   []byte
		)
		if err := rows.Scan(&saved.ID, &saved.Owner, &raw, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		if saved.Address, err = decodeAddress(raw); err != nil {
			return nil, err
		}
		result = append(result, saved)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate addresses", err)
	}
	return result, nil
}

var _ domain.AddressBook = (*addressBook)(nil)
