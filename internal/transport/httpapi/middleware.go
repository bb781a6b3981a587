package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	headerCustomerID = "X-Customer-ID"
	headerAdminToken = "X-Admin-Token"
)

type ctxKey int

const ownerKey ctxKey = iota

// ownerFrom возвращает идентификатор покупателя, установленный requireCustomer.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// requireCustomer читает владельца корзины из X-Customer-ID. Аутентификация выполняется
// выше по цепочке (gateway), сюда приходит уже проверенный идентификатор.
func requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(headerCustomerID))
		if owner == "" {
			respondError(w, r, http.StatusUnauthorized, "customer_required", "missing "+headerCustomerID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(headerAdminToken)
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			respondError(w, r, http.StatusForbidden, "admin_required", "admin token is missing or invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog пишет строку лога и метрики на каждый запрос. Маршрут берётся из шаблона chi,
// чтобы идентификаторы не раздували кардинальность.
func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if h.metrics != nil {
			h.metrics.Observe(r.Method, route, status, duration)
		}

		h.logger.WithFields(log.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"route":       route,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": duration.Milliseconds(),
		}).Debug("http request")
	})
}
