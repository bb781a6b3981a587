package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestLoadProducts(t *testing.T) {
	products, err := memory.LoadProducts(strings.NewReader(`[
		{"id": "P1", "name": "Lamp", "price": "500", "stock": 3, "primary_image_url": "lamp.png"},
		{"id": "P2", "name": "Kettle", "price": 1200, "sale_price": "999.50", "stock": 0, "is_active": false}
	]`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if !products[0].Active || products[1].Active {
		t.Fatalf("unexpected active flags: %v %v", products[0].Active, products[1].Active)
	}
	if !products[1].EffectivePrice().Equal(decimal.RequireFromString("999.50")) {
		t.Fatalf("unexpected effective price %s", products[1].EffectivePrice())
	}

	catalog := memory.NewCatalog(products...)
	got, err := catalog.GetProduct(context.Background(), "P1")
	if err != nil || got.Stock != 3 {
		t.Fatalf("unexpected product %+v (%v)", got, err)
	}
	if _, err := catalog.GetProduct(context.Background(), "P9"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestLoadProducts_RequiresID(t *testing.T) {
	if _, err := memory.LoadProducts(strings.NewReader(`[{"name": "x", "price": "1"}]`)); err == nil {
		t.Fatal("expected error for entry without id")
	}
}
