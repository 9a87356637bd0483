package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/backend"
)

// serveLogged はhandlerをロギングミドルウェア越しに1回呼び、出力されたログ1行を返す。
func serveLogged(t *testing.T, handler http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLoggingMiddleware(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"count":1}`))
	})

	entry := serveLogged(t, handler, httptest.NewRequest(http.MethodPost, "/api/cart/items", nil))

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/api/cart/items" {
		t.Errorf("path = %v, want /api/cart/items", entry["path"])
	}
	if entry["status"] != float64(201) {
		t.Errorf("status = %v, want 201", entry["status"])
	}
	if entry["bytes"] != float64(len(`{"count":1}`)) {
		t.Errorf("bytes = %v, want %d", entry["bytes"], len(`{"count":1}`))
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want a non-negative number", entry["duration_ms"])
	}
	if _, ok := entry["request_id"]; ok {
		t.Errorf("request_id should be omitted without a correlation ID, got %v", entry["request_id"])
	}
	if _, ok := entry["route"]; ok {
		t.Errorf("route should be omitted outside chi, got %v", entry["route"])
	}
}

func TestLoggingMiddleware_IncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req = req.WithContext(backend.WithRequestID(req.Context(), "req-123"))

	entry := serveLogged(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), req)

	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", entry["request_id"])
	}
}

func TestLoggingMiddleware_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  float64
		wantLevel string
	}{
		{"NothingWritten", func(http.ResponseWriter, *http.Request) {}, 200, "INFO"},
		{"ImplicitOK", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) }, 200, "INFO"},
		{"NoContent", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }, 204, "INFO"},
		{"StockExceeded", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusConflict) }, 409, "WARN"},
		{"LoginRequired", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) }, 401, "WARN"},
		{"BackendDown", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, 502, "ERROR"},
		{"SecondWriteHeaderIgnored", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			w.WriteHeader(http.StatusInternalServerError)
		}, 202, "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := serveLogged(t, tt.handler, httptest.NewRequest(http.MethodGet, "/test", nil))

			if entry["status"] != tt.wantCode {
				t.Errorf("status = %v, want %v", entry["status"], tt.wantCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
		})
	}
}

func TestLoggingMiddleware_IncludesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger))
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/p9", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if entry["route"] != "/api/products/{id}" {
		t.Errorf("route = %v, want %q", entry["route"], "/api/products/{id}")
	}
	if entry["path"] != "/api/products/p9" {
		t.Errorf("path = %v, want %q", entry["path"], "/api/products/p9")
	}
}
