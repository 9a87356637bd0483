package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/storefront/internal/checkout"
	"github.com/hitoshi/storefront/internal/model"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	// PlaceOrder はカートの内容で注文を確定する。
	PlaceOrder(ctx context.Context, address model.Address, method model.PaymentMethod) (*checkout.Placement, error)
	// Verify は決済ページからの戻りを検証する。
	Verify(ctx context.Context, success bool, orderID string, method model.PaymentMethod) (bool, error)
	// MyOrders は注文履歴を新しい順に返す。
	MyOrders(ctx context.Context) ([]model.Order, error)
}

// OrderHandler は注文のHTTPハンドラー。
type OrderHandler struct {
	service OrderServiceInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

type placeOrderRequest struct {
	Address       model.Address       `json:"address"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

type verifyOrderRequest struct {
	Success       bool                `json:"success"`
	OrderID       string              `json:"orderId"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

type verifyOrderResponse struct {
	Verified bool `json:"verified"`
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

// PlaceOrder は注文を確定する。
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	placement, err := h.service.PlaceOrder(r.Context(), req.Address, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placement)
}

// ListOrders は注文履歴を返す。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.MyOrders(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

// Verify は決済結果を検証する。
// POST /api/orders/verify
func (h *OrderHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	ok, err := h.service.Verify(r.Context(), req.Success, req.OrderID, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyOrderResponse{Verified: ok})
}
