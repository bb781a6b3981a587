package httpapi

import (
	"net/http"
)

func (h *Handler) initiateCheckout(w http.ResponseWriter, r *http.Request) {
	intent, err := h.checkout.Initiate(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntentResponse(intent))
}

// completeCheckout принимает колбэк провайдера и адрес доставки и создаёт заказ.
func (h *Handler) completeCheckout(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	order, err := h.checkout.Complete(r.Context(), ownerFrom(r.Context()), req.callback(), req.addressInput())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}
