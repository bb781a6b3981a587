package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentStatus описывает состояние оплаты заказа. Каноническая форма: верхний регистр.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// ParsePaymentStatus приводит внешнее значение к канонической форме.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: payment status %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// RemoteIntent — платёжное намерение, созданное у провайдера.
type RemoteIntent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Provider    string
}

// PaymentCallback — поля, которые клиент присылает после оплаты у провайдера.
type PaymentCallback struct {
	RemoteOrderRef   string
	RemotePaymentRef string
	RemoteSignature  string
}

// Validate проверяет, что все три поля заполнены.
func (c PaymentCallback) Validate() error {
	var missing []string
	if strings.TrimSpace(c.RemoteOrderRef) == "" {
		missing = append(missing, "remote_order_ref")
	}
	if strings.TrimSpace(c.RemotePaymentRef) == "" {
		missing = append(missing, "remote_payment_ref")
	}
	if strings.TrimSpace(c.RemoteSignature) == "" {
		missing = append(missing, "remote_signature")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPaymentDetails, strings.Join(missing, ", "))
	}
	return nil
}

// PaymentRecord связывает заказ с платежом у провайдера.
type PaymentRecord struct {
	Provider         string
	RemoteOrderRef   string
	RemotePaymentRef string
	RemoteSignature  string
	VerifiedAt       time.Time
}
