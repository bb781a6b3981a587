package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyINR — единственная валюта витрины.
const CurrencyINR = "INR"

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ToMinorUnits переводит сумму в минимальные единицы (пайсы) с округлением до целого.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// CartItem — позиция корзины со снимком цены на момент последнего изменения.
type CartItem struct {
	ProductID string
	Quantity  int
	// UnitPrice фиксируется при добавлении/обновлении и не следит за каталогом.
	UnitPrice decimal.Decimal
	Name      string
	Image     string
}

// LineTotal возвращает quantity × unitPrice.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Ref возвращает ссылку на товар. Строки без снимка (например, перенесённые из старых данных)
// дают вариант с одним идентификатором.
func (i CartItem) Ref() ProductRef {
	if i.Name == "" && i.UnitPrice.IsZero() && i.Image == "" {
		return RefFromID(i.ProductID)
	}
	return RefFromSnapshot(ProductSnapshot{
		ID:    i.ProductID,
		Name:  i.Name,
		Price: i.UnitPrice,
		Image: i.Image,
	})
}

// Totals — производные итоги корзины.
type Totals struct {
	Count  int
	Amount decimal.Decimal
}

// RecomputeTotals считает итоги по позициям. Это единственный источник итогов корзины.
func RecomputeTotals(items []CartItem) Totals {
	totals := Totals{Amount: decimal.Zero}
	for _, item := range items {
		totals.Count += item.Quantity
		totals.Amount = totals.Amount.Add(item.LineTotal())
	}
	return totals
}

// Cart — изменяемая корзина покупателя.
type Cart struct {
	Owner          string
	Items          []CartItem
	TotalItemCount int
	TotalAmount    decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewCart создаёт пустую корзину.
func NewCart(owner string, now time.Time) Cart {
	return Cart{
		Owner:       owner,
		Items:       []CartItem{},
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsEmpty сообщает, есть ли в корзине позиции.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AmountMinor возвращает итог корзины в минимальных единицах.
func (c Cart) AmountMinor() int64 {
	return ToMinorUnits(c.TotalAmount)
}

// Item ищет позицию по товару.
func (c Cart) Item(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// Upsert заменяет позицию с тем же товаром или добавляет новую, затем пересчитывает итоги.
func (c *Cart) Upsert(item CartItem, now time.Time) {
	replaced := false
	for idx := range c.Items {
		if c.Items[idx].ProductID == item.ProductID {
			c.Items[idx] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.Items = append(c.Items, item)
	}
	c.touch(now)
}

// Remove удаляет позицию, если она есть. Возвращает true, если корзина изменилась.
func (c *Cart) Remove(productID string, now time.Time) bool {
	for idx := range c.Items {
		if c.Items[idx].ProductID != productID {
			continue
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		c.touch(now)
		return true
	}
	return false
}

// Empty очищает корзину и обнуляет итоги.
func (c *Cart) Empty(now time.Time) {
	c.Items = []CartItem{}
	c.touch(now)
}

// Recompute пересчитывает итоги, не доверяя сохранённым значениям.
func (c *Cart) Recompute() {
	totals := RecomputeTotals(c.Items)
	c.TotalItemCount = totals.Count
	c.TotalAmount = totals.Amount
}

// Clone возвращает глубокую копию корзины.
func (c Cart) Clone() Cart {
	dst := c
	dst.Items = append([]CartItem(nil), c.Items...)
	if dst.Items == nil {
		dst.Items = []CartItem{}
	}
	return dst
}

func (c *Cart) touch(now time.Time) {
	c.Recompute()
	c.UpdatedAt = now
}
