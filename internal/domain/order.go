package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа. Каноническая форма: верхний регистр.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed — оплата подтверждена, заказ принят в работу.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered — заказ вручён покупателю.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён, терминальное состояние.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderStatusRank задаёт порядок прямых переходов; отмена вне шкалы.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// ShopperEditable сообщает, может ли покупатель отменить заказ или поменять адрес.
func (s OrderStatus) ShopperEditable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// IsForward сообщает, является ли переход s → next движением вперёд по графу статусов.
func (s OrderStatus) IsForward(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return s.ShopperEditable()
	}
	from, okFrom := orderStatusRank[s]
	to, okTo := orderStatusRank[next]
	return okFrom && okTo && to > from
}

// ParseOrderStatus приводит внешнее значение к канонической форме.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "CANCELED" {
		normalized = string(OrderStatusCancelled)
	}
	status := OrderStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("%w: order status %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// OrderItem — глубокая копия позиции корзины на момент оформления.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal возвращает quantity × unitPrice.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Ref возвращает ссылку на товар позиции.
func (i OrderItem) Ref() ProductRef {
	if i.Name == "" && i.UnitPrice.IsZero() && i.Image == "" {
		return RefFromID(i.ProductID)
	}
	return RefFromSnapshot(ProductSnapshot{ID: i.ProductID, Name: i.Name, Price: i.UnitPrice, Image: i.Image})
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID            string
	Owner         string
	Items         []OrderItem
	Amount        decimal.Decimal
	Currency      string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Address       Address
	// Payment заполняется после проверки подписи callback.
	Payment   *PaymentRecord
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrderFromCart материализует оплаченный заказ из корзины.
func NewOrderFromCart(id string, cart Cart, address Address, payment PaymentRecord, now time.Time) Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	record := payment

	return Order{
		ID:            id,
		Owner:         cart.Owner,
		Items:         items,
		Amount:        RecomputeTotals(cart.Items).Amount,
		Currency:      CurrencyINR,
		Status:        OrderStatusConfirmed,
		PaymentStatus: PaymentStatusPaid,
		Address:       address,
		Payment:       &record,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AmountMinor возвращает сумму заказа в минимальных единицах.
func (o Order) AmountMinor() int64 {
	return ToMinorUnits(o.Amount)
}

// Cancel переводит заказ в CANCELLED, если покупателю это ещё разрешено.
// Статус платежа не меняется: возврат средств выполняется отдельно.
func (o *Order) Cancel(now time.Time) error {
	if !o.Status.ShopperEditable() {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = now
	return nil
}

// UpdateAddress сливает патч с текущим адресом заказа.
func (o *Order) UpdateAddress(patch AddressPatch, now time.Time) error {
	if !o.Status.ShopperEditable() {
		return fmt.Errorf("%w: cannot edit address in status %s", ErrInvalidTransition, o.Status)
	}
	o.Address = patch.Apply(o.Address)
	o.UpdatedAt = now
	return nil
}

// OverrideStatus устанавливает статус без проверок графа. Возвращает предыдущее значение.
func (o *Order) OverrideStatus(status OrderStatus, now time.Time) OrderStatus {
	prev := o.Status
	o.Status = status
	o.UpdatedAt = now
	return prev
}

// OverridePaymentStatus устанавливает статус платежа без проверок. Возвращает предыдущее значение.
func (o *Order) OverridePaymentStatus(status PaymentStatus, now time.Time) PaymentStatus {
	prev := o.PaymentStatus
	o.PaymentStatus = status
	o.UpdatedAt = now
	return prev
}

// Clone возвращает копию заказа без общих срезов и указателей.
func (o Order) Clone() Order {
	dst := o
	dst.Items = append([]OrderItem(nil), o.Items...)
	if o.Payment != nil {
		p := *o.Payment
		dst.Payment = &p
	}
	return dst
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Owner == "" {
		errs = append(errs, ErrOwnerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Amount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.LineTotal())
	}
	if !calc.Equal(o.Amount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
