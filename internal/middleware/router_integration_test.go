package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/backend"
)

// newChainRouter は本番と同じ順序でミドルウェアを組んだchi.Routerを返す。
// Recovery → RequestID → Logging → SecurityHeaders → CORS → RateLimit
func newChainRouter(t *testing.T, tokens TokenSource, logBuf *bytes.Buffer) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(logBuf, nil))
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    3,
		LoginRate:       1,
		LoginBurst:      1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware(logger))
	r.Use(NewRequestIDMiddleware())
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewSecurityHeadersMiddleware())
	r.Use(NewCORSMiddleware("http://localhost:5173"))
	r.Use(rl.GeneralMiddleware())

	r.Get("/api/cart", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"request_id": backend.RequestIDFromContext(r.Context())})
	})
	r.With(rl.LoginMiddleware()).Post("/api/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(tokens))
		r.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	r.Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	return r
}

func TestRouterIntegration_RequestIDFlowsToHandlerAndLog(t *testing.T) {
	var logBuf bytes.Buffer
	r := newChainRouter(t, staticTokens(""), &logBuf)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(RequestIDHeader, "chain-req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["request_id"] != "chain-req-1" {
		t.Errorf("request_id in handler = %q, want %q", body["request_id"], "chain-req-1")
	}

	var entry map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v\nraw: %s", err, logBuf.String())
	}
	if entry["request_id"] != "chain-req-1" {
		t.Errorf("request_id in log = %v, want %q", entry["request_id"], "chain-req-1")
	}
	if w.Result().Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be applied")
	}
	if w.Result().Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("CORS headers should be applied")
	}
}

func TestRouterIntegration_SessionGroup(t *testing.T) {
	t.Run("signed_out", func(t *testing.T) {
		r := newChainRouter(t, staticTokens(""), &bytes.Buffer{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("signed_in", func(t *testing.T) {
		r := newChainRouter(t, staticTokens("tok"), &bytes.Buffer{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
	})
}

func TestRouterIntegration_LoginLimitedSeparately(t *testing.T) {
	r := newChainRouter(t, staticTokens(""), &bytes.Buffer{})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	if w1.Result().StatusCode != http.StatusCreated {
		t.Fatalf("first login: status = %d, want %d", w1.Result().StatusCode, http.StatusCreated)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	if w2.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("second login: status = %d, want %d", w2.Result().StatusCode, http.StatusTooManyRequests)
	}

	// ログインの制限は閲覧系に波及しない
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if w3.Result().StatusCode != http.StatusOK {
		t.Errorf("cart: status = %d, want %d", w3.Result().StatusCode, http.StatusOK)
	}
}

func TestRouterIntegration_PreflightShortCircuits(t *testing.T) {
	r := newChainRouter(t, staticTokens(""), &bytes.Buffer{})

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestRouterIntegration_PanicRecovered(t *testing.T) {
	var logBuf bytes.Buffer
	r := newChainRouter(t, staticTokens(""), &logBuf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/panic", nil))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
	if w.Result().Header.Get(RequestIDHeader) == "" {
		t.Error("request id header should be set even on panic")
	}
}
