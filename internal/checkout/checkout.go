// Package checkout は注文の組み立て・確定・決済検証・注文履歴の取得を提供する。
// 決済処理そのものはバックエンドに委ねる。
package checkout

import (
	"context"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

// 配送先フォームの初期値
const (
	DefaultCountry  = "Sri Lanka"
	DefaultProvince = "Western Province"
)

// VerifyPath は代金引換の注文確定後に遷移する検証ページのパス。
const VerifyPath = "/verify"

// Backend はチェックアウトが利用するバックエンドAPIの部分集合。
type Backend interface {
	PlaceOrder(ctx context.Context, token string, order *model.Order) (*model.PlacedOrder, error)
	UserOrders(ctx context.Context, token string) ([]model.Order, error)
	VerifyOrder(ctx context.Context, success bool, orderID string) (bool, error)
}

// Cart は注文対象のカートを提供する。store.Storeが満たす。
type Cart interface {
	Token() string
	CartLines() []model.CartLine
	TotalCartAmount() decimal.Decimal
	ClearCart(ctx context.Context)
}

// Placement は注文確定の結果。
// Redirectは前払いなら決済ページのURL、代金引換なら検証ページのパス。
// 決済ページのURLが安全でない場合、前払いでもRedirectは空になる。
type Placement struct {
	OrderID    string `json:"orderId"`
	SessionURL string `json:"sessionUrl,omitempty"`
	Redirect   string `json:"redirect"`
}

// Service はチェックアウト処理を提供する。
type Service struct {
	backend   Backend
	cart      Cart
	redirects security.RedirectGuardService
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// trustedOriginsは決済ページのURLとして常に許可するオリジン（APIやフロントエンドのURL）。
func NewService(b Backend, cart Cart, logger *slog.Logger, trustedOrigins ...string) *Service {
	return &Service{
		backend:   b,
		cart:      cart,
		redirects: security.NewRedirectGuard(trustedOrigins...),
		logger:    logger,
	}
}

// BuildOrder はカートの各行から注文を組み立てる。数量0以下の行は含めない。
// 色・サイズが未指定の行はselectedColor/selectedSizeをnullにする。
func BuildOrder(lines []model.CartLine, address model.Address, method model.PaymentMethod, total decimal.Decimal) *model.Order {
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		items = append(items, model.OrderItem{
			Product:       line.Product,
			Quantity:      line.Quantity,
			SelectedColor: optional(line.Key.Color),
			SelectedSize:  optional(line.Key.Size),
		})
	}

	return &model.Order{
		Items:         items,
		Amount:        total,
		Address:       address,
		PaymentMethod: method,
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// ValidateAddress は必須項目とメールアドレスの形式を検証し、空白を除去した配送先を返す。
// 国・州が空の場合は初期値を補う。
func ValidateAddress(address model.Address) (model.Address, error) {
	a := model.Address{
		FirstName:      strings.TrimSpace(address.FirstName),
		LastName:       strings.TrimSpace(address.LastName),
		CompanyName:    strings.TrimSpace(address.CompanyName),
		Country:        strings.TrimSpace(address.Country),
		Street:         strings.TrimSpace(address.Street),
		City:           strings.TrimSpace(address.City),
		Province:       strings.TrimSpace(address.Province),
		ZipCode:        strings.TrimSpace(address.ZipCode),
		Phone:          strings.TrimSpace(address.Phone),
		Email:          strings.TrimSpace(address.Email),
		AdditionalInfo: strings.TrimSpace(address.AdditionalInfo),
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	if a.Province == "" {
		a.Province = DefaultProvince
	}

	var invalid []string
	required := []struct {
		field string
		value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"street", a.Street},
		{"city", a.City},
		{"zipCode", a.ZipCode},
		{"phone", a.Phone},
		{"email", a.Email},
	}
	for _, r := range required {
		if r.value == "" {
			invalid = append(invalid, r.field)
		}
	}
	if a.Email != "" {
		if parsed, err := mail.ParseAddress(a.Email); err != nil || parsed.Address != a.Email {
			invalid = append(invalid, "email")
		}
	}

	if len(invalid) > 0 {
		return a, model.NewInvalidAddressError(invalid)
	}
	return a, nil
}

// PlaceOrder はカートの内容で注文を確定する。
// 未ログイン、空のカート、不正な配送先・支払い方法の場合は*model.APIErrorを返す。
// バックエンドが注文を作成した時点で成功とし、カートを空にする。
func (s *Service) PlaceOrder(ctx context.Context, address model.Address, method model.PaymentMethod) (*Placement, error) {
	token := s.cart.Token()
	if token == "" {
		return nil, model.NewLoginRequiredError()
	}

	total := s.cart.TotalCartAmount()
	if total.IsZero() {
		return nil, model.NewEmptyCartError()
	}

	if method == "" {
		method = model.PaymentDirectBankTransfer
	}
	if !method.Valid() {
		return nil, model.NewInvalidPaymentMethodError(string(method))
	}

	address, err := ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	order := BuildOrder(s.cart.CartLines(), address, method, total)

	placed, err := s.backend.PlaceOrder(ctx, token, order)
	if err != nil {
		s.logger.Warn("注文の確定に失敗しました",
			slog.String("payment_method", string(method)),
			slog.String("error", err.Error()),
		)
		return nil, backend.ToAPIError(err)
	}

	// 注文はバックエンドで作成済みなので、以降はエラーを返さずカートを空にする
	p := &Placement{OrderID: placed.OrderID}
	if method == model.PaymentCashOnDelivery {
		p.Redirect = VerifyRedirect(placed.OrderID, method)
	} else if err := s.redirects.ValidateRedirect(placed.SessionURL); err != nil {
		s.logger.Warn("決済ページのURLが不正なためリダイレクト先を返しません",
			slog.String("order_id", placed.OrderID),
			slog.String("error", err.Error()),
		)
	} else {
		p.SessionURL = placed.SessionURL
		p.Redirect = placed.SessionURL
	}

	s.cart.ClearCart(ctx)

	s.logger.Info("注文を確定しました",
		slog.String("order_id", placed.OrderID),
		slog.String("payment_method", string(method)),
		slog.Int("item_count", len(order.Items)),
		slog.String("amount", total.String()),
	)
	return p, nil
}

// VerifyRedirect は検証ページへの遷移先パスを返す。
func VerifyRedirect(orderID string, method model.PaymentMethod) string {
	q := url.Values{}
	q.Set("success", "true")
	q.Set("orderId", orderID)
	q.Set("paymentMethod", string(method))
	return VerifyPath + "?" + q.Encode()
}

// Verify は決済結果を検証し、注文が有効かを返す。
// 代金引換はバックエンドでの検証を行わず常に有効とする。
func (s *Service) Verify(ctx context.Context, success bool, orderID string, method model.PaymentMethod) (bool, error) {
	if method == model.PaymentCashOnDelivery {
		return true, nil
	}
	if orderID == "" {
		return false, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "orderIdが指定されていません",
			Category: "validation",
			Action:   "注文履歴から状態を確認してください。",
		}
	}

	ok, err := s.backend.VerifyOrder(ctx, success, orderID)
	if err != nil {
		s.logger.Warn("決済の検証に失敗しました",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return false, backend.ToAPIError(err)
	}
	return ok, nil
}

// MyOrders はログイン中のユーザーの注文履歴を新しい順に返す。
func (s *Service) MyOrders(ctx context.Context) ([]model.Order, error) {
	token := s.cart.Token()
	if token == "" {
		return nil, model.NewLoginRequiredError()
	}

	orders, err := s.backend.UserOrders(ctx, token)
	if err != nil {
		return nil, backend.ToAPIError(err)
	}

	// バックエンドは古い順で返す
	reversed := make([]model.Order, len(orders))
	for i, o := range orders {
		reversed[len(orders)-1-i] = o
	}
	return reversed, nil
}
