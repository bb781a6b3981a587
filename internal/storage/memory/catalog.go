package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Catalog — in-memory каталог для локального запуска и тестов.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewCatalog создаёт каталог с начальным набором товаров.
func NewCatalog(products ...domain.Product) *Catalog {
	c := &Catalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// Put добавляет или заменяет товар.
func (c *Catalog) Put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

// GetProduct возвращает товар как есть, включая неактивные; решение принимает вызывающий код.
func (c *Catalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// catalogEntry — формат товара в seed-файле.
type catalogEntry struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	Stock           int              `json:"stock"`
	Active          *bool            `json:"is_active,omitempty"`
	PrimaryImageURL string           `json:"primary_image_url"`
}

// LoadProducts читает JSON-массив товаров. Отсутствующий is_active считается true.
func LoadProducts(r io.Reader) ([]domain.Product, error) {
	var entries []catalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	products := make([]domain.Product, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id is required", i)
		}
		p := domain.Product{
			ID:              e.ID,
			Name:            e.Name,
			Price:           e.Price,
			Stock:           e.Stock,
			Active:          e.Active == nil || *e.Active,
			PrimaryImageURL: e.PrimaryImageURL,
		}
		if e.SalePrice != nil {
			p.SalePrice = decimal.NewNullDecimal(*e.SalePrice)
		}
		products = append(products, p)
	}
	return products, nil
}

var _ domain.CatalogReader = (*Catalog)(nil)
