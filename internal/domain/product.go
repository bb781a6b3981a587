package domain

import "github.com/shopspring/decimal"

// Product — состояние товара в каталоге на момент чтения.
type Product struct {
	ID              string
	Name            string
	Price           decimal.Decimal
	SalePrice       decimal.NullDecimal
	Stock           int
	Active          bool
	PrimaryImageURL string
}

// EffectivePrice возвращает цену, по которой товар попадает в корзину:
// цену распродажи, если она задана и ниже обычной.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsPositive() && p.SalePrice.Decimal.LessThan(p.Price) {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// Snapshot фиксирует данные товара для позиции корзины.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.EffectivePrice(),
		Image: p.PrimaryImageURL,
	}
}

// ProductSnapshot — копия имени, цены и изображения товара.
type ProductSnapshot struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

type productRefKind uint8

const (
	productRefIDOnly productRefKind = iota
	productRefSnapshot
)

// ProductRef — ссылка на товар внутри позиции: либо полный снимок, либо только идентификатор.
// Вариант определяется один раз при чтении, дальше код не проверяет форму данных.
type ProductRef struct {
	kind     productRefKind
	id       string
	snapshot ProductSnapshot
}

// RefFromSnapshot создаёт ссылку-снимок.
func RefFromSnapshot(s ProductSnapshot) ProductRef {
	return ProductRef{kind: productRefSnapshot, id: s.ID, snapshot: s}
}

// RefFromID создаёт ссылку, у которой есть только идентификатор.
func RefFromID(id string) ProductRef {
	return ProductRef{kind: productRefIDOnly, id: id}
}

// ID возвращает идентификатор товара для обоих вариантов.
func (r ProductRef) ID() string {
	return r.id
}

// Snapshot возвращает снимок и true, если ссылка содержит данные товара.
func (r ProductRef) Snapshot() (ProductSnapshot, bool) {
	if r.kind != productRefSnapshot {
		return ProductSnapshot{}, false
	}
	return r.snapshot, true
}
