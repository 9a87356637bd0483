package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/storefront/internal/checkout"
	"github.com/hitoshi/storefront/internal/model"
)

// mockOrderService はOrderServiceInterfaceのモック実装。
type mockOrderService struct {
	placeOrderFn func(ctx context.Context, address model.Address, method model.PaymentMethod) (*checkout.Placement, error)
	verifyFn     func(ctx context.Context, success bool, orderID string, method model.PaymentMethod) (bool, error)
	myOrdersFn   func(ctx context.Context) ([]model.Order, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, address model.Address, method model.PaymentMethod) (*checkout.Placement, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, address, method)
	}
	return nil, nil
}

func (m *mockOrderService) Verify(ctx context.Context, success bool, orderID string, method model.PaymentMethod) (bool, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, success, orderID, method)
	}
	return false, nil
}

func (m *mockOrderService) MyOrders(ctx context.Context) ([]model.Order, error) {
	if m.myOrdersFn != nil {
		return m.myOrdersFn(ctx)
	}
	return nil, nil
}

// --- POST /api/orders テスト ---

func TestOrderHandler_PlaceOrder_Success(t *testing.T) {
	svc := &mockOrderService{
		placeOrderFn: func(ctx context.Context, address model.Address, method model.PaymentMethod) (*checkout.Placement, error) {
			if address.FirstName != "Nimal" || address.City != "Colombo" {
				t.Errorf("address = %+v", address)
			}
			if method != model.PaymentDirectBankTransfer {
				t.Errorf("method = %q, want %q", method, model.PaymentDirectBankTransfer)
			}
			return &checkout.Placement{
				OrderID:    "o-1",
				SessionURL: "https://pay.example.com/s/1",
				Redirect:   "https://pay.example.com/s/1",
			}, nil
		},
	}
	h := NewOrderHandler(svc)

	body := `{"address":{"firstName":"Nimal","city":"Colombo"},"paymentMethod":"direct-bank-transfer"}`
	w := httptest.NewRecorder()
	h.PlaceOrder(w, postJSON("/api/orders", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp checkout.Placement
	decodeResponse(t, w, &resp)
	if resp.OrderID != "o-1" || resp.Redirect != "https://pay.example.com/s/1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestOrderHandler_PlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"EmptyCart", model.NewEmptyCartError(), http.StatusConflict},
		{"LoginRequired", model.NewLoginRequiredError(), http.StatusUnauthorized},
		{"InvalidAddress", model.NewInvalidAddressError([]string{"email"}), http.StatusBadRequest},
		{"InvalidPayment", model.NewInvalidPaymentMethodError("card"), http.StatusBadRequest},
		{"BackendFailed", model.NewBackendFailedError("status 500"), http.StatusBadGateway},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOrderHandler(&mockOrderService{
				placeOrderFn: func(ctx context.Context, address model.Address, method model.PaymentMethod) (*checkout.Placement, error) {
					return nil, tt.err
				},
			})

			w := httptest.NewRecorder()
			h.PlaceOrder(w, postJSON("/api/orders", `{"address":{}}`))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestOrderHandler_PlaceOrder_InvalidJSON(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{})

	w := httptest.NewRecorder()
	h.PlaceOrder(w, postJSON("/api/orders", `not json`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/orders テスト ---

func TestOrderHandler_ListOrders(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{
		myOrdersFn: func(ctx context.Context) ([]model.Order, error) {
			return []model.Order{{ID: "o-2"}, {ID: "o-1"}}, nil
		},
	})

	w := httptest.NewRecorder()
	h.ListOrders(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	var resp ordersResponse
	decodeResponse(t, w, &resp)
	if len(resp.Orders) != 2 || resp.Orders[0].ID != "o-2" {
		t.Errorf("orders = %+v", resp.Orders)
	}
}

func TestOrderHandler_ListOrders_NilIsEmptyArray(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{})

	w := httptest.NewRecorder()
	h.ListOrders(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if got := w.Body.String(); got != "{\"orders\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

// --- POST /api/orders/verify テスト ---

func TestOrderHandler_Verify(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{
		verifyFn: func(ctx context.Context, success bool, orderID string, method model.PaymentMethod) (bool, error) {
			if !success || orderID != "o-1" {
				t.Errorf("Verify(%v, %q)", success, orderID)
			}
			return true, nil
		},
	})

	w := httptest.NewRecorder()
	h.Verify(w, postJSON("/api/orders/verify", `{"success":true,"orderId":"o-1"}`))

	var resp verifyOrderResponse
	decodeResponse(t, w, &resp)
	if !resp.Verified {
		t.Error("verified = false, want true")
	}
}
