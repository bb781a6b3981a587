package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Get(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// setCartItem задаёт точное количество товара; 0 удаляет позицию.
func (h *Handler) setCartItem(w http.ResponseWriter, r *http.Request) {
	var req setItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_quantity", "quantity must be a non-negative integer")
		return
	}

	c, err := h.cart.SetItem(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "productID"), *req.Quantity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.RemoveItem(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Clear(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) refreshCart(w http.ResponseWriter, r *http.Request) {
	c, report, err := h.cart.Refresh(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRefreshResponse(c, report))
}

// getProduct отдаёт карточку товара; неактивный товар для покупателя не существует.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !product.Active {
		h.respondServiceError(w, r, domain.ErrProductNotFound)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	saved, err := h.addresses.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]savedAddressView, 0, len(saved))
	for _, a := range saved {
		views = append(views, savedAddressView{ID: a.ID, Address: toAddressView(a.Address), UpdatedAt: a.UpdatedAt})
	}
	respondJSON(w, http.StatusOK, map[string]any{"addresses": views})
}
