package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/model"
)

// CartStore はカート・お気に入りハンドラーが操作するストア。store.Storeが満たす。
type CartStore interface {
	CartLines() []model.CartLine
	TotalCartAmount() decimal.Decimal
	CartCount() int
	AddToCart(ctx context.Context, productID, color, size string) error
	RemoveFromCart(ctx context.Context, key model.CartKey)
	Likes() model.Likes
	ToggleLike(ctx context.Context, productID string) bool
}

// CartHandler はカートとお気に入りのHTTPハンドラー。
type CartHandler struct {
	store CartStore
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(s CartStore) *CartHandler {
	return &CartHandler{store: s}
}

// --- リクエスト/レスポンス型 ---

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type cartResponse struct {
	Lines []model.CartLine `json:"lines"`
	Total decimal.Decimal  `json:"total"`
	Count int              `json:"count"`
}

type likesResponse struct {
	Likes []string `json:"likes"`
}

type toggleLikeResponse struct {
	ProductID string `json:"productId"`
	Liked     bool   `json:"liked"`
}

// GetCart はカートの明細・合計金額・点数を返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartView())
}

// AddItem はカートに商品を1点追加する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if req.ProductID == "" {
		writeInvalidRequest(w, "productIdを指定してください。")
		return
	}

	if err := h.store.AddToCart(r.Context(), req.ProductID, req.Color, req.Size); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.cartView())
}

// RemoveItem はカートから商品を1点減らす。存在しないキーは何もしない。
// DELETE /api/cart/items/{key}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	raw, err := cartKeyParam(r)
	if err != nil || raw == "" {
		writeInvalidRequest(w, "カートキーが不正です。")
		return
	}

	h.store.RemoveFromCart(r.Context(), model.ParseCartKey(raw))
	writeJSON(w, http.StatusOK, h.cartView())
}

// ListLikes はお気に入り登録された商品IDの一覧を返す。
// GET /api/likes
func (h *CartHandler) ListLikes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, likesResponse{Likes: h.store.Likes().IDs()})
}

// ToggleLike はお気に入りの有無を反転する。
// POST /api/likes/{id}/toggle
func (h *CartHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	liked := h.store.ToggleLike(r.Context(), id)
	writeJSON(w, http.StatusOK, toggleLikeResponse{ProductID: id, Liked: liked})
}

func (h *CartHandler) cartView() cartResponse {
	lines := h.store.CartLines()
	if lines == nil {
		lines = []model.CartLine{}
	}
	return cartResponse{
		Lines: lines,
		Total: h.store.TotalCartAmount(),
		Count: h.store.CartCount(),
	}
}

// cartKeyParam はURLパスのカートキーを返す。
// chiはRawPathがある場合だけエスケープされたままの値でルーティングするので、その場合のみデコードする。
func cartKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, nil
	}
	return url.PathUnescape(key)
}
