package domain

import (
	"strings"
	"time"
)

// Address — снимок адреса доставки, хранится в заказе по значению.
type Address struct {
	FullName string
	Phone    string
	Pincode  string
	Line1    string
	Line2    string
	City     string
	State    string
	Landmark string
}

// Validate проверяет обязательные поля адреса.
func (a Address) Validate() error {
	required := []string{a.FullName, a.Phone, a.Pincode, a.Line1, a.City, a.State}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

// AddressPatch — частичное обновление адреса: nil-поля сохраняют прежнее значение.
type AddressPatch struct {
	FullName *string
	Phone    *string
	Pincode  *string
	Line1    *string
	Line2    *string
	City     *string
	State    *string
	Landmark *string
}

// IsEmpty сообщает, что в патче не задано ни одного поля.
func (p AddressPatch) IsEmpty() bool {
	return p.FullName == nil && p.Phone == nil && p.Pincode == nil && p.Line1 == nil &&
		p.Line2 == nil && p.City == nil && p.State == nil && p.Landmark == nil
}

// Apply накладывает патч на адрес и возвращает результат.
func (p AddressPatch) Apply(base Address) Address {
	merged := base
	assign(&merged.FullName, p.FullName)
	assign(&merged.Phone, p.Phone)
	assign(&merged.Pincode, p.Pincode)
	assign(&merged.Line1, p.Line1)
	assign(&merged.Line2, p.Line2)
	assign(&merged.City, p.City)
	assign(&merged.State, p.State)
	assign(&merged.Landmark, p.Landmark)
	return merged
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// SavedAddress — запись адресной книги покупателя.
type SavedAddress struct {
	ID        string
	Owner     string
	Address   Address
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressInput — адрес, переданный при оформлении: ссылка на сохранённый адрес
// и/или поля нового адреса.
type AddressInput struct {
	// AddressID выбирает запись адресной книги; пустое значение создаёт новую.
	AddressID string
	Fields    AddressPatch
}

// Resolve накладывает поля ввода на базовый адрес (выбранный или пустой) и проверяет результат.
func (in AddressInput) Resolve(base Address) (Address, error) {
	addr := in.Fields.Apply(base)
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}
