package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := h.orders.List(r.Context(), ownerFrom(r.Context()), limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderResponse(o))
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) orderTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.orders.Timeline(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	views := make([]timelineView, 0, len(events))
	for _, e := range events {
		views = append(views, timelineView{Type: e.Type, Actor: string(e.Actor), Reason: e.Reason, Occurred: e.Occurred})
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": views})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	order, err := h.orders.Cancel(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateOrderAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if !decodeJSON(w, r, &req, false) {
		return
	}

	order, err := h.orders.UpdateAddress(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "orderID"), req.patch())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.AdminGet(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// adminSetStatus выставляет статус заказа в обход правил перехода.
func (h *Handler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	order, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "orderID"), status, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) adminSetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	status, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	order, err := h.orders.SetPaymentStatus(r.Context(), chi.URLParam(r, "orderID"), status, req.Reason)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}
