package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplay         = "X-Idempotent-Replay"

	idempotencyPersistTimeout = 2 * time.Second
)

// idempotent повторяет сохранённый ответ для запроса с тем же Idempotency-Key.
// Заголовок необязателен: без него запрос обрабатывается как обычно.
func (h *Handler) idempotent(next http.Handler) http.Handler {
	if h.idempotency == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := readAndReplayBody(r)
		if err != nil {
			respondError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body is too large")
			return
		}

		scoped := domain.ScopedIdempotencyKey(ownerFrom(r.Context()), r.Method+" "+r.URL.Path, key)
		hash := requestHash(r.Method, r.URL.Path, body)

		record, err := h.idempotency.CreateProcessing(r.Context(), scoped, hash, h.now().Add(h.idempotencyTTL))
		switch {
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			respondError(w, r, http.StatusUnprocessableEntity, "idempotency_key_reused",
				"idempotency key already used for a different request")
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			if record.Completed() {
				h.replay(w, record)
				return
			}
			respondError(w, r, http.StatusConflict, "idempotency_in_progress",
				"another request with this idempotency key is in progress")
			return
		case err != nil:
			h.respondServiceError(w, r, err)
			return
		}

		rec := &responseRecorder{header: make(http.Header), status: http.StatusOK}
		completed := false
		defer func() {
			if !completed {
				// обработчик запаниковал: ключ освобождается, панику дальше обработает Recoverer
				h.release(r, scoped)
			}
		}()
		next.ServeHTTP(rec, r)
		completed = true
		h.persist(r, scoped, rec)
		rec.flush(w)
	})
}

// persist сохраняет результат. 5xx освобождает ключ, чтобы клиент мог повторить запрос.
func (h *Handler) persist(r *http.Request, key string, rec *responseRecorder) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), idempotencyPersistTimeout)
	defer cancel()

	var err error
	switch {
	case rec.status >= http.StatusInternalServerError:
		err = h.idempotency.Release(ctx, key)
	case rec.status >= http.StatusBadRequest:
		err = h.idempotency.MarkFailed(ctx, key, rec.body.Bytes(), rec.status)
	default:
		err = h.idempotency.MarkDone(ctx, key, rec.body.Bytes(), rec.status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).
			Warn("failed to persist idempotency record")
	}
}

func (h *Handler) release(r *http.Request, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), idempotencyPersistTimeout)
	defer cancel()
	if err := h.idempotency.Release(ctx, key); err != nil {
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).
			Warn("failed to release idempotency key")
	}
}

func (h *Handler) replay(w http.ResponseWriter, record domain.IdempotencyRecord) {
	if h.metrics != nil {
		h.metrics.RecordReplay()
	}
	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(headerReplay, "true")
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requestHash(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{':'})
	sum.Write([]byte(path))
	sum.Write([]byte{':'})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

// responseRecorder буферизует ответ до сохранения записи идемпотентности.
type responseRecorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rr *responseRecorder) Header() http.Header { return rr.header }

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.wroteHeader {
		return
	}
	rr.status = status
	rr.wroteHeader = true
}

func (rr *responseRecorder) Write(p []byte) (int, error) {
	rr.wroteHeader = true
	return rr.body.Write(p)
}

func (rr *responseRecorder) flush(w http.ResponseWriter) {
	for k, values := range rr.header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(rr.status)
	_, _ = w.Write(rr.body.Bytes())
}
