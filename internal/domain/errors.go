package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — общий вид ошибки "сущность не найдена"; конкретные ошибки ниже оборачивают её.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге или снят с продажи.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому покупателю.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrAddressNotFound возвращается, если выбранный адрес отсутствует в адресной книге.
	ErrAddressNotFound = fmt.Errorf("address %w", ErrNotFound)
	// ErrCartNotFound используется только хранилищами; сервис корзины создаёт пустую корзину.
	ErrCartNotFound = fmt.Errorf("cart %w", ErrNotFound)

	// ErrInsufficientStock — запрошенное количество превышает остаток на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart — в корзине нет позиций для оформления.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidPaymentDetails — в callback не хватает платёжных полей или они некорректны.
	ErrInvalidPaymentDetails = errors.New("invalid payment details")
	// ErrInvalidTransition — переход статуса заказа запрещён из текущего состояния.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrSignatureMismatch — подпись callback не совпала с ожидаемой HMAC.
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrInvalidAddress — в адресе не заполнены обязательные поля.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidQuantity — количество вне допустимого диапазона.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidStatus — неизвестное значение статуса заказа или платежа.
	ErrInvalidStatus = errors.New("invalid status value")

	// ErrGatewayUnavailable — платёжный провайдер недоступен или интеграция настроена неверно.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrStorageUnavailable — хранилище недоступно, запрос можно повторить.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки инвариантов заказа.
	ErrOwnerRequired    = errors.New("owner is required")
	ErrCurrencyRequired = errors.New("currency is required")
	ErrItemsRequired    = errors.New("order must contain at least one item")
	ErrAmountNegative   = errors.New("amount must be non-negative")
	ErrItemQtyInvalid   = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	ErrAmountMismatch   = errors.New("order amount does not match items sum")

	// Ошибки idempotency-хранилища.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsClientError сообщает, вызвана ли ошибка входными данными покупателя (4xx).
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidPaymentDetails),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSignatureMismatch),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidStatus):
		return true
	default:
		return false
	}
}

// IsUpstreamError сообщает, относится ли ошибка к недоступности внешней системы (5xx, можно повторить).
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrStorageUnavailable)
}
