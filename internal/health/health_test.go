package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok(context.Context) error { return nil }

func failing(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, handler *Handler) (int, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w.Code, response
}

func TestHealthHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", ok))

	code, response := serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "v1.0.0" {
		t.Errorf("expected version v1.0.0, got %s", response.Version)
	}
	if len(response.Checks) != 1 {
		t.Errorf("expected 1 check, got %d", len(response.Checks))
	}
}

func TestHealthHandler_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]*SimpleChecker
		want     Status
		code     int
	}{
		{
			name:     "required failure",
			checkers: map[string]*SimpleChecker{"storage": NewSimpleChecker("storage", failing("down"))},
			want:     StatusUnhealthy,
			code:     http.StatusServiceUnavailable,
		},
		{
			name: "optional failure",
			checkers: map[string]*SimpleChecker{
				"storage": NewSimpleChecker("storage", ok),
				"redis":   NewOptionalChecker("redis", failing("connection refused")),
			},
			want: StatusDegraded,
			code: http.StatusOK,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: map[string]*SimpleChecker{
				"storage": NewSimpleChecker("storage", failing("down")),
				"kafka":   NewOptionalChecker("kafka", failing("no brokers")),
			},
			want: StatusUnhealthy,
			code: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("test")
			for name, checker := range tt.checkers {
				handler.RegisterChecker(name, checker)
			}

			code, response := serve(t, handler)
			if code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, code)
			}
			if response.Status != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, response.Status)
			}
		})
	}
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	handler := NewHandler("test")
	handler.timeout = 20 * time.Millisecond
	handler.RegisterChecker("slow", NewSimpleChecker("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	code, response := serve(t, handler)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", code)
	}
	if response.Checks["slow"].Message != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected message: %q", response.Checks["slow"].Message)
	}
}

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	LivenessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %s", w.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name    string
		checker *SimpleChecker
		code    int
		body    string
	}{
		{name: "ready", checker: NewSimpleChecker("storage", ok), code: http.StatusOK, body: "ready"},
		{name: "degraded is still ready", checker: NewOptionalChecker("redis", failing("down")), code: http.StatusOK, body: "ready"},
		{name: "not ready", checker: NewSimpleChecker("storage", failing("down")), code: http.StatusServiceUnavailable, body: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("v1.0.0")
			handler.RegisterChecker("dep", tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			handler.ReadinessHandler(w, req)

			if w.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestSimpleChecker_Error(t *testing.T) {
	check := NewSimpleChecker("test", failing("test error")).Check(context.Background())

	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}
	if check.Message != "test error" {
		t.Errorf("expected message 'test error', got %s", check.Message)
	}
}
