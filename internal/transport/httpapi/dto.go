package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

// productView — товар позиции. Для позиций без снимка заполнен только id.
type productView struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

func viewProductRef(ref domain.ProductRef) productView {
	snapshot, ok := ref.Snapshot()
	if !ok {
		return productView{ID: ref.ID()}
	}
	return productView{ID: snapshot.ID, Name: snapshot.Name, Image: snapshot.Image}
}

type lineView struct {
	Product   productView `json:"product"`
	Quantity  int         `json:"quantity"`
	UnitPrice string      `json:"unit_price"`
	LineTotal string      `json:"line_total"`
}

type cartResponse struct {
	Owner          string     `json:"owner"`
	Items          []lineView `json:"items"`
	TotalItemCount int        `json:"total_item_count"`
	TotalAmount    string     `json:"total_amount"`
	Currency       string     `json:"currency"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toCartResponse(c domain.Cart) cartResponse {
	items := make([]lineView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, lineView{
			Product:   viewProductRef(item.Ref()),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return cartResponse{
		Owner:          c.Owner,
		Items:          items,
		TotalItemCount: c.TotalItemCount,
		TotalAmount:    c.TotalAmount.StringFixed(2),
		Currency:       domain.CurrencyINR,
		UpdatedAt:      c.UpdatedAt,
	}
}

type refreshResponse struct {
	Cart     cartResponse `json:"cart"`
	Removed  []string     `json:"removed"`
	Capped   []string     `json:"capped"`
	Repriced []string     `json:"repriced"`
}

func toRefreshResponse(c domain.Cart, report cart.RefreshReport) refreshResponse {
	return refreshResponse{
		Cart:     toCartResponse(c),
		Removed:  nonNil(report.Removed),
		Capped:   nonNil(report.Capped),
		Repriced: nonNil(report.Repriced),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type setItemRequest struct {
	Quantity *int `json:"quantity"`
}

type intentResponse struct {
	RemoteOrderRef string `json:"remote_order_ref"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	Provider       string `json:"provider"`
	Receipt        string `json:"receipt,omitempty"`
}

func toIntentResponse(intent domain.RemoteIntent) intentResponse {
	return intentResponse{
		RemoteOrderRef: intent.ID,
		AmountMinor:    intent.AmountMinor,
		Currency:       intent.Currency,
		Provider:       intent.Provider,
		Receipt:        intent.Receipt,
	}
}

type addressPayload struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Pincode  *string `json:"pincode"`
	Line1    *string `json:"line1"`
	Line2    *string `json:"line2"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Landmark *string `json:"landmark"`
}

func (p addressPayload) patch() domain.AddressPatch {
	return domain.AddressPatch(p)
}

type completeRequest struct {
	RemoteOrderRef   string         `json:"remote_order_ref"`
	RemotePaymentRef string         `json:"remote_payment_ref"`
	RemoteSignature  string         `json:"remote_signature"`
	AddressID        string         `json:"address_id"`
	Address          addressPayload `json:"address"`
}

func (r completeRequest) callback() domain.PaymentCallback {
	return domain.PaymentCallback{
		RemoteOrderRef:   r.RemoteOrderRef,
		RemotePaymentRef: r.RemotePaymentRef,
		RemoteSignature:  r.RemoteSignature,
	}
}

func (r completeRequest) addressInput() domain.AddressInput {
	return domain.AddressInput{AddressID: r.AddressID, Fields: r.Address.patch()}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type addressView struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Pincode  string `json:"pincode"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Landmark string `json:"landmark,omitempty"`
}

func toAddressView(a domain.Address) addressView {
	return addressView(a)
}

type savedAddressView struct {
	ID        string      `json:"id"`
	Address   addressView `json:"address"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type paymentView struct {
	Provider         string    `json:"provider"`
	RemoteOrderRef   string    `json:"remote_order_ref"`
	RemotePaymentRef string    `json:"remote_payment_ref"`
	VerifiedAt       time.Time `json:"verified_at"`
}

type orderResponse struct {
	ID            string       `json:"id"`
	Owner         string       `json:"owner"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	Items         []lineView   `json:"items"`
	Amount        string       `json:"amount"`
	Currency      string       `json:"currency"`
	Address       addressView  `json:"address"`
	Payment       *paymentView `json:"payment,omitempty"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]lineView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineView{
			Product:   viewProductRef(item.Ref()),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}

	resp := orderResponse{
		ID:            o.ID,
		Owner:         o.Owner,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Items:         items,
		Amount:        o.Amount.StringFixed(2),
		Currency:      o.Currency,
		Address:       toAddressView(o.Address),
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Payment != nil {
		resp.Payment = &paymentView{
			Provider:         o.Payment.Provider,
			RemoteOrderRef:   o.Payment.RemoteOrderRef,
			RemotePaymentRef: o.Payment.RemotePaymentRef,
			VerifiedAt:       o.Payment.VerifiedAt,
		}
	}
	return resp
}

type timelineView struct {
	Type     string    `json:"type"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type productResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     string  `json:"price"`
	SalePrice *string `json:"sale_price,omitempty"`
	Effective string  `json:"effective_price"`
	Stock     int     `json:"stock"`
	Image     string  `json:"image,omitempty"`
}

func toProductResponse(p domain.Product) productResponse {
	resp := productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Effective: p.EffectivePrice().StringFixed(2),
		Stock:     p.Stock,
		Image:     p.PrimaryImageURL,
	}
	if p.SalePrice.Valid {
		sale := p.SalePrice.Decimal.StringFixed(2)
		resp.SalePrice = &sale
	}
	return resp
}
