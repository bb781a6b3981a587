package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestProduct_EffectivePrice(t *testing.T) {
	price := decimal.NewFromInt(500)

	tests := []struct {
		name string
		sale decimal.NullDecimal
		want decimal.Decimal
	}{
		{name: "no sale price", sale: decimal.NullDecimal{}, want: price},
		{name: "lower sale price", sale: decimal.NewNullDecimal(decimal.NewFromInt(450)), want: decimal.NewFromInt(450)},
		{name: "sale price above price", sale: decimal.NewNullDecimal(decimal.NewFromInt(600)), want: price},
		{name: "zero sale price", sale: decimal.NewNullDecimal(decimal.Zero), want: price},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.Product{ID: "P1", Price: price, SalePrice: tt.sale}
			if got := p.EffectivePrice(); !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestProduct_Snapshot(t *testing.T) {
	p := domain.Product{
		ID:              "P1",
		Name:            "Kettle",
		Price:           decimal.NewFromInt(1200),
		SalePrice:       decimal.NewNullDecimal(decimal.NewFromInt(999)),
		PrimaryImageURL: "https://cdn.example/kettle.png",
	}

	snap := p.Snapshot()
	if snap.ID != "P1" || snap.Name != "Kettle" || snap.Image != p.PrimaryImageURL {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Price.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected sale price in snapshot, got %s", snap.Price)
	}
}
