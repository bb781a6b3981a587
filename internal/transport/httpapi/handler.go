// Package httpapi публикует операции корзины, оформления и заказов по HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	maxBodyBytes          = 1 << 20
)

// CartService — операции корзины, доступные через API.
type CartService interface {
	Get(ctx context.Context, owner string) (domain.Cart, error)
	SetItem(ctx context.Context, owner, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, owner, productID string) (domain.Cart, error)
	Clear(ctx context.Context, owner string) (domain.Cart, error)
	Refresh(ctx context.Context, owner string) (domain.Cart, cart.RefreshReport, error)
}

// CheckoutService — двухфазное оформление заказа.
type CheckoutService interface {
	Initiate(ctx context.Context, owner string) (domain.RemoteIntent, error)
	Complete(ctx context.Context, owner string, callback domain.PaymentCallback, address domain.AddressInput) (domain.Order, error)
}

// OrderService — чтение и изменение заказов покупателем и администратором.
type OrderService interface {
	Get(ctx context.Context, owner, id string) (domain.Order, error)
	AdminGet(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, owner string, limit int) ([]domain.Order, error)
	Timeline(ctx context.Context, owner, id string) ([]domain.TimelineEvent, error)
	Cancel(ctx context.Context, owner, id, reason string) (domain.Order, error)
	UpdateAddress(ctx context.Context, owner, id string, patch domain.AddressPatch) (domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus, reason string) (domain.Order, error)
	SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, reason string) (domain.Order, error)
}

// Dependencies — всё, что нужно роутеру.
type Dependencies struct {
	Cart      CartService
	Checkout  CheckoutService
	Orders    OrderService
	Addresses domain.AddressBook
	Catalog   domain.CatalogReader

	// Idempotency включает обработку заголовка Idempotency-Key; nil отключает её.
	Idempotency    domain.IdempotencyRepository
	IdempotencyTTL time.Duration

	// AdminToken открывает /admin. Пустое значение закрывает админские маршруты.
	AdminToken string

	Logger  *log.Entry
	Metrics *metrics.HTTPMetrics
	Clock   func() time.Time
}

// Handler обслуживает HTTP API витрины.
type Handler struct {
	cart      CartService
	checkout  CheckoutService
	orders    OrderService
	addresses domain.AddressBook
	catalog   domain.CatalogReader

	idempotency    domain.IdempotencyRepository
	idempotencyTTL time.Duration
	adminToken     string

	logger  *log.Entry
	metrics *metrics.HTTPMetrics
	now     func() time.Time
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(deps Dependencies) http.Handler {
	h := &Handler{
		cart:           deps.Cart,
		checkout:       deps.Checkout,
		orders:         deps.Orders,
		addresses:      deps.Addresses,
		catalog:        deps.Catalog,
		idempotency:    deps.Idempotency,
		idempotencyTTL: deps.IdempotencyTTL,
		adminToken:     deps.AdminToken,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		now:            deps.Clock,
	}
	if h.logger == nil {
		h.logger = log.WithField("component", "http-api")
	}
	if h.idempotencyTTL <= 0 {
		h.idempotencyTTL = defaultIdempotencyTTL
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "route_not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/products/{productID}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(requireCustomer)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/refresh", h.refreshCart)
			r.Put("/items/{productID}", h.setCartItem)
			r.Delete("/items/{productID}", h.removeCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(h.idempotent)
			r.Post("/initiate", h.initiateCheckout)
			r.Post("/complete", h.completeCheckout)
		})

		r.Get("/addresses", h.listAddresses)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/{orderID}", h.getOrder)
			r.Get("/{orderID}/timeline", h.orderTimeline)
			r.With(h.idempotent).Post("/{orderID}/cancel", h.cancelOrder)
			r.Put("/{orderID}/address", h.updateOrderAddress)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/orders/{orderID}", h.adminGetOrder)
		r.Patch("/orders/{orderID}/status", h.adminSetStatus)
		r.Patch("/orders/{orderID}/payment-status", h.adminSetPaymentStatus)
	})

	return r
}
