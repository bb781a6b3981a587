package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// errorMapping — соответствие доменной ошибки HTTP-статусу и коду. Порядок важен:
// более конкретные ошибки идут раньше общих.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domain.ErrAddressNotFound, http.StatusNotFound, "address_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{domain.ErrEmptyCart, http.StatusConflict, "empty_cart"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrInvalidPaymentDetails, http.StatusBadRequest, "invalid_payment_details"},
	{domain.ErrSignatureMismatch, http.StatusBadRequest, "signature_mismatch"},
	{domain.ErrInvalidAddress, http.StatusUnprocessableEntity, "invalid_address"},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
	{domain.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
	{domain.ErrOwnerRequired, http.StatusUnauthorized, "customer_required"},
	{domain.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable"},
	{domain.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// statusForError возвращает HTTP-статус и код для ошибки сервиса.
func statusForError(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondServiceError пишет ответ по доменной ошибке. Сообщения 5xx не раскрывают детали,
// сама ошибка попадает в лог.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	message := err.Error()

	entry := h.logger.WithError(err).WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
	})
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable:
		entry.Error("request failed")
		message = http.StatusText(status)
	case status >= http.StatusInternalServerError:
		entry.Warn("upstream unavailable")
	default:
		entry.Debug("request rejected")
	}

	respondError(w, r, status, code, message)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}
