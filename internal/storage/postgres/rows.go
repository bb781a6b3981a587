package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Позиции и адреса хранятся в JSONB целиком: изменения каталога и адресной книги
// не должны затрагивать уже сохранённые корзины и заказы.

type itemRow struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type addressRow struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Pincode  string `json:"pincode"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Landmark string `json:"landmark,omitempty"`
}

type paymentRow struct {
	Provider         string    `json:"provider"`
	RemoteOrderRef   string    `json:"remote_order_ref"`
	RemotePaymentRef string    `json:"remote_payment_ref"`
	RemoteSignature  string    `json:"remote_signature"`
	VerifiedAt       time.Time `json:"verified_at"`
}

func encodeCartItems(items []domain.CartItem) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, itemRow{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return json.Marshal(rows)
}

func decodeCartItems(raw []byte) ([]domain.CartItem, error) {
	var rows []itemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	items := make([]domain.CartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.CartItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Name:      r.Name,
			Image:     r.Image,
		})
	}
	return items, nil
}

func encodeOrderItems(items []domain.OrderItem) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, itemRow(item))
	}
	return json.Marshal(rows)
}

func decodeOrderItems(raw []byte) ([]domain.OrderItem, error) {
	var rows []itemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	items := make([]domain.OrderItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.OrderItem(r))
	}
	return items, nil
}

func encodeAddress(a domain.Address) ([]byte, error) {
	return json.Marshal(addressRow(a))
}

func decodeAddress(raw []byte) (domain.Address, error) {
	var row addressRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.Address{}, fmt.Errorf("decode address: %w", err)
	}
	return domain.Address(row), nil
}

func encodePayment(p *domain.PaymentRecord) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(paymentRow(*p))
}

func decodePayment(raw []byte) (*domain.PaymentRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var row paymentRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	record := domain.PaymentRecord(row)
	return &record, nil
}
