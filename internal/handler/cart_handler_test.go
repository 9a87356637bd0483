package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/model"
)

// mockCartStore はCartStoreのモック実装。
type mockCartStore struct {
	lines []model.CartLine
	total decimal.Decimal
	count int
	likes model.Likes

	addToCartFn func(ctx context.Context, productID, color, size string) error
	removed     []model.CartKey
	toggled     []string
}

func (m *mockCartStore) CartLines() []model.CartLine { return m.lines }

func (m *mockCartStore) TotalCartAmount() decimal.Decimal { return m.total }

func (m *mockCartStore) CartCount() int { return m.count }

func (m *mockCartStore) Likes() model.Likes { return m.likes }

func (m *mockCartStore) AddToCart(ctx context.Context, productID, color, size string) error {
	if m.addToCartFn != nil {
		return m.addToCartFn(ctx, productID, color, size)
	}
	return nil
}

func (m *mockCartStore) RemoveFromCart(ctx context.Context, key model.CartKey) {
	m.removed = append(m.removed, key)
}

func (m *mockCartStore) ToggleLike(ctx context.Context, productID string) bool {
	m.toggled = append(m.toggled, productID)
	return len(m.toggled)%2 == 1
}

// --- GET /api/cart テスト ---

func TestCartHandler_GetCart(t *testing.T) {
	key := model.NewCartKey("p1", "red", "")
	store := &mockCartStore{
		lines: []model.CartLine{{
			Key:      key,
			Product:  sampleProducts()[0],
			Quantity: 2,
			Subtotal: decimal.NewFromInt(100),
		}},
		total: decimal.NewFromInt(100),
		count: 2,
	}
	h := NewCartHandler(store)

	w := httptest.NewRecorder()
	h.GetCart(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Lines []struct {
			CartKey  string `json:"cartKey"`
			Quantity int    `json:"quantity"`
		} `json:"lines"`
		Total float64 `json:"total"`
		Count int     `json:"count"`
	}
	decodeResponse(t, w, &resp)
	if len(resp.Lines) != 1 || resp.Lines[0].CartKey != "p1_red_default" || resp.Lines[0].Quantity != 2 {
		t.Errorf("lines = %+v", resp.Lines)
	}
	if resp.Total != 100 {
		t.Errorf("total = %v, want 100", resp.Total)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestCartHandler_GetCart_EmptyLinesIsArray(t *testing.T) {
	h := NewCartHandler(&mockCartStore{})

	w := httptest.NewRecorder()
	h.GetCart(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if !bytes.Contains(w.Body.Bytes(), []byte(`"lines":[]`)) {
		t.Errorf("body = %s, want empty lines array", w.Body.String())
	}
}

// --- POST /api/cart/items テスト ---

func TestCartHandler_AddItem_Success(t *testing.T) {
	var gotProduct, gotColor, gotSize string
	store := &mockCartStore{
		addToCartFn: func(ctx context.Context, productID, color, size string) error {
			gotProduct, gotColor, gotSize = productID, color, size
			return nil
		},
	}
	h := NewCartHandler(store)

	body := `{"productId":"p1","color":"#816DFA","size":"L"}`
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.AddItem(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotProduct != "p1" || gotColor != "#816DFA" || gotSize != "L" {
		t.Errorf("AddToCart(%q, %q, %q)", gotProduct, gotColor, gotSize)
	}
}

func TestCartHandler_AddItem_BusinessRuleRejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"StockExceeded", model.NewStockExceededError("p1", 2), http.StatusConflict},
		{"OutOfStock", model.NewOutOfStockError("p1"), http.StatusConflict},
		{"ProductNotFound", model.NewProductNotFoundError("p1"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCartHandler(&mockCartStore{
				addToCartFn: func(ctx context.Context, productID, color, size string) error {
					return tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewBufferString(`{"productId":"p1"}`))
			w := httptest.NewRecorder()

			h.AddItem(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			body := parseAPIErrorResponse(t, w)
			if body["code"] != tt.err.(*model.APIError).Code {
				t.Errorf("code = %q, want %q", body["code"], tt.err.(*model.APIError).Code)
			}
			for _, field := range []string{"message", "category", "action"} {
				if body[field] == "" {
					t.Errorf("missing field %q", field)
				}
			}
		})
	}
}

func TestCartHandler_AddItem_InvalidInput_ReturnsBadRequest(t *testing.T) {
	called := false
	h := NewCartHandler(&mockCartStore{
		addToCartFn: func(ctx context.Context, productID, color, size string) error {
			called = true
			return nil
		},
	})

	for _, body := range []string{`{invalid`, `{"color":"red"}`} {
		w := httptest.NewRecorder()
		h.AddItem(w, httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewBufferString(body)))

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
	if called {
		t.Error("AddToCart should not be called for invalid input")
	}
}

// --- DELETE /api/cart/items/{key} テスト ---

func TestCartHandler_RemoveItem_ParsesEscapedWireKey(t *testing.T) {
	tests := []struct {
		name string
		path string
		want model.CartKey
	}{
		{"EscapedHash", "/api/cart/items/p1_%23816DFA_default", model.CartKey{ProductID: "p1", Color: "#816DFA"}},
		{"LiteralPercent", "/api/cart/items/p1_100%25cotton_M", model.CartKey{ProductID: "p1", Color: "100%cotton", Size: "M"}},
		{"EscapedSlash", "/api/cart/items/p1_black%2Fwhite_default", model.CartKey{ProductID: "p1", Color: "black/white"}},
		{"Plain", "/api/cart/items/p2_default_L", model.CartKey{ProductID: "p2", Size: "L"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockCartStore{}
			r := chi.NewRouter()
			r.Delete("/api/cart/items/{key}", NewCartHandler(store).RemoveItem)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, tt.path, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
			}
			if len(store.removed) != 1 || store.removed[0] != tt.want {
				t.Errorf("removed = %+v, want [%+v]", store.removed, tt.want)
			}
		})
	}
}

func TestCartHandler_RemoveItem_EmptyKey_ReturnsBadRequest(t *testing.T) {
	store := &mockCartStore{}
	h := NewCartHandler(store)

	req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/api/cart/items/", nil), "key", "")
	w := httptest.NewRecorder()

	h.RemoveItem(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(store.removed) != 0 {
		t.Error("RemoveFromCart should not be called")
	}
}

// --- お気に入りテスト ---

func TestCartHandler_ListLikes(t *testing.T) {
	h := NewCartHandler(&mockCartStore{likes: model.Likes{"p3": true, "p1": true}})

	w := httptest.NewRecorder()
	h.ListLikes(w, httptest.NewRequest(http.MethodGet, "/api/likes", nil))

	var resp likesResponse
	decodeResponse(t, w, &resp)
	if len(resp.Likes) != 2 || resp.Likes[0] != "p1" || resp.Likes[1] != "p3" {
		t.Errorf("likes = %v, want [p1 p3]", resp.Likes)
	}
}

func TestCartHandler_ToggleLike(t *testing.T) {
	store := &mockCartStore{}
	h := NewCartHandler(store)

	req := withChiURLParam(httptest.NewRequest(http.MethodPost, "/api/likes/p2/toggle", nil), "id", "p2")
	w := httptest.NewRecorder()

	h.ToggleLike(w, req)

	var resp toggleLikeResponse
	decodeResponse(t, w, &resp)
	if resp.ProductID != "p2" || !resp.Liked {
		t.Errorf("response = %+v, want {p2 true}", resp)
	}
	if len(store.toggled) != 1 || store.toggled[0] != "p2" {
		t.Errorf("toggled = %v", store.toggled)
	}
}
