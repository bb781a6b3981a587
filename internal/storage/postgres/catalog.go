package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type catalogReader struct {
	db *sql.DB
}

// NewCatalogReader читает товары из таблицы products. Записью каталога управляет другой сервис.
func NewCatalogReader(store *Store) domain.CatalogReader {
	return &catalogReader{db: store.DB()}
}

func (c *catalogReader) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p domain.Product
	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, price, sale_price, stock, is_active, primary_image_url
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.SalePrice, &p.Stock, &p.Active, &p.PrimaryImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, storageErr("select product", err)
	}
	return p, nil
}

var _ domain.CatalogReader = (*catalogReader)(nil)
