// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, order, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeOutOfStock      = "OUT_OF_STOCK"
	ErrCodeStockExceeded   = "STOCK_EXCEEDED"
	ErrCodeLoginRequired   = "LOGIN_REQUIRED"
	ErrCodeLoginFailed     = "LOGIN_FAILED"
	ErrCodeEmptyCart       = "EMPTY_CART"
	ErrCodeInvalidAddress  = "INVALID_ADDRESS"
	ErrCodeInvalidPayment  = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidRating   = "INVALID_RATING"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeBackendFailed   = "BACKEND_FAILED"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "cart",
		Action:   "商品一覧を再読み込みしてください。",
	}
}

// NewOutOfStockError は在庫切れエラーを生成する。
func NewOutOfStockError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeOutOfStock,
		Message:  fmt.Sprintf("商品は在庫切れです: %s", productID),
		Category: "cart",
		Action:   "入荷をお待ちください。",
	}
}

// NewStockExceededError はカート数量が在庫数を超える場合のエラーを生成する。
func NewStockExceededError(productID string, stock int) *APIError {
	return &APIError{
		Code:     ErrCodeStockExceeded,
		Message:  fmt.Sprintf("在庫は残り%d点のみです: %s", stock, productID),
		Category: "cart",
		Action:   "数量を在庫数以下にしてください。",
	}
}

// NewLoginRequiredError はログインが必要な操作のエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewLoginFailedError はバックエンドがログインを拒否した場合のエラーを生成する。
func NewLoginFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  fmt.Sprintf("ログインに失敗しました: %s", reason),
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewEmptyCartError は空のカートで注文しようとした場合のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: "order",
		Action:   "商品をカートに追加してください。",
	}
}

// NewInvalidAddressError は配送先の入力不備エラーを生成する。
func NewInvalidAddressError(fields []string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAddress,
		Message:  fmt.Sprintf("配送先の入力が不足しています: %v", fields),
		Category: "validation",
		Action:   "必須項目をすべて入力してください。",
	}
}

// NewInvalidPaymentMethodError は未対応の支払い方法エラーを生成する。
func NewInvalidPaymentMethodError(method string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayment,
		Message:  fmt.Sprintf("無効な支払い方法です: %s", method),
		Category: "validation",
		Action:   "支払い方法には direct-bank-transfer または cash-on-delivery を指定してください。",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価です: %d", rating),
		Category: "validation",
		Action:   "評価は1から5の範囲で指定してください。",
	}
}

// NewBackendFailedError はバックエンドが処理を拒否した場合のエラーを生成する。
func NewBackendFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendFailed,
		Message:  fmt.Sprintf("サーバーで処理できませんでした: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
