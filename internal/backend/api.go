package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/storefront/internal/model"
)

// エンドポイントのパス
const (
	EndpointProductList  = "/api/product/list"
	EndpointCartGet      = "/api/cart/get"
	EndpointCartAdd      = "/api/cart/add"
	EndpointCartRemove   = "/api/cart/remove"
	EndpointLikesGet     = "/api/likes/get"
	EndpointLikesToggle  = "/api/likes/toggle"
	EndpointUserData     = "/api/user/getUserData"
	EndpointUserLogin    = "/api/user/login"
	EndpointUserRegister = "/api/user/register"
	EndpointOrderPlace   = "/api/order/place"
	EndpointOrderList    = "/api/order/userorders"
	EndpointOrderVerify  = "/api/order/verify"
	EndpointReviews      = "/api/reviews/"
	// endpointReviewsByProduct はメトリクス用のパステンプレート。
	endpointReviewsByProduct = "/api/reviews/{productId}"
)

type productListResponse struct {
	envelope
	Data []model.Product `json:"data"`
}

type cartResponse struct {
	envelope
	CartData model.Cart `json:"cartData"`
}

type likesResponse struct {
	envelope
	LikedData model.Likes `json:"likedData"`
}

type userDataResponse struct {
	envelope
	Data *model.UserProfile `json:"data"`
}

type tokenResponse struct {
	envelope
	Token string `json:"token"`
}

type placeOrderResponse struct {
	envelope
	OrderID    string `json:"orderId"`
	SessionURL string `json:"session_url"`
}

type ordersResponse struct {
	envelope
	Data []model.Order `json:"data"`
}

type reviewsResponse struct {
	envelope
	Data []model.Review `json:"data"`
}

// cartMutation はカート追加のリクエストボディ。
// 未指定の色・サイズはnullで送る。
type cartMutation struct {
	ItemID        string  `json:"itemId"`
	SelectedColor *string `json:"selectedColor"`
	SelectedSize  *string `json:"selectedSize"`
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// ListProducts は商品カタログ全件を取得する。
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var resp productListResponse
	if err := c.call(ctx, http.MethodGet, EndpointProductList, EndpointProductList, "", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []model.Product{}, nil
	}
	return resp.Data, nil
}

// GetCart はサーバー側のカートを取得する。
func (c *Client) GetCart(ctx context.Context, token string) (model.Cart, error) {
	var resp cartResponse
	if err := c.call(ctx, http.MethodPost, EndpointCartGet, EndpointCartGet, token, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.CartData == nil {
		return model.Cart{}, nil
	}
	return resp.CartData, nil
}

// AddToCart はカート追加をサーバーに反映する。
func (c *Client) AddToCart(ctx context.Context, token string, key model.CartKey) error {
	body := cartMutation{
		ItemID:        key.ProductID,
		SelectedColor: optional(key.Color),
		SelectedSize:  optional(key.Size),
	}
	var resp envelope
	return c.call(ctx, http.MethodPost, EndpointCartAdd, EndpointCartAdd, token, body, &resp)
}

// RemoveFromCart はカートからの1点削除をサーバーに反映する。
func (c *Client) RemoveFromCart(ctx context.Context, token string, key model.CartKey) error {
	body := map[string]string{"cartKey": key.String()}
	var resp envelope
	return c.call(ctx, http.MethodPost, EndpointCartRemove, EndpointCartRemove, token, body, &resp)
}

// GetLikes はサーバー側のお気に入りを取得する。
func (c *Client) GetLikes(ctx context.Context, token string) (model.Likes, error) {
	var resp likesResponse
	if err := c.call(ctx, http.MethodPost, EndpointLikesGet, EndpointLikesGet, token, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.LikedData == nil {
		return model.Likes{}, nil
	}
	return resp.LikedData, nil
}

// ToggleLike はお気に入りの反転をサーバーに反映する。
func (c *Client) ToggleLike(ctx context.Context, token, productID string) error {
	body := map[string]string{"itemId": productID}
	var resp envelope
	return c.call(ctx, http.MethodPost, EndpointLikesToggle, EndpointLikesToggle, token, body, &resp)
}

// GetUserData はトークンに紐づくユーザー情報を取得する。
func (c *Client) GetUserData(ctx context.Context, token string) (*model.UserProfile, error) {
	var resp userDataResponse
	if err := c.call(ctx, http.MethodGet, EndpointUserData, EndpointUserData, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &RemoteError{Endpoint: EndpointUserData, Message: "user data is empty"}
	}
	return resp.Data, nil
}

// Login はメールアドレスとパスワードでログインし、トークンを返す。
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	body := model.Credentials{Email: creds.Email, Password: creds.Password}
	return c.issueToken(ctx, EndpointUserLogin, body)
}

// Register はユーザー登録を行い、トークンを返す。
func (c *Client) Register(ctx context.Context, creds model.Credentials) (string, error) {
	return c.issueToken(ctx, EndpointUserRegister, creds)
}

func (c *Client) issueToken(ctx context.Context, endpoint string, creds model.Credentials) (string, error) {
	var resp tokenResponse
	if err := c.call(ctx, http.MethodPost, endpoint, endpoint, "", creds, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &RemoteError{Endpoint: endpoint, Message: "token is empty"}
	}
	return resp.Token, nil
}

// PlaceOrder は注文を確定する。
func (c *Client) PlaceOrder(ctx context.Context, token string, order *model.Order) (*model.PlacedOrder, error) {
	var resp placeOrderResponse
	if err := c.call(ctx, http.MethodPost, EndpointOrderPlace, EndpointOrderPlace, token, order, &resp); err != nil {
		return nil, err
	}
	return &model.PlacedOrder{OrderID: resp.OrderID, SessionURL: resp.SessionURL}, nil
}

// UserOrders はユーザーの注文一覧をバックエンドの返却順で取得する。
func (c *Client) UserOrders(ctx context.Context, token string) ([]model.Order, error) {
	var resp ordersResponse
	if err := c.call(ctx, http.MethodPost, EndpointOrderList, EndpointOrderList, token, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// VerifyOrder は決済ページからの戻りを検証する。
// バックエンドが success:false を返した場合は (false, nil) を返す。
func (c *Client) VerifyOrder(ctx context.Context, success bool, orderID string) (bool, error) {
	body := map[string]string{
		"success": strconv.FormatBool(success),
		"orderId": orderID,
	}
	var resp envelope
	err := c.call(ctx, http.MethodPost, EndpointOrderVerify, EndpointOrderVerify, "", body, &resp)
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListReviews は商品のレビュー一覧を取得する。
func (c *Client) ListReviews(ctx context.Context, productID string) ([]model.Review, error) {
	var resp reviewsResponse
	path := EndpointReviews + url.PathEscape(productID)
	if err := c.call(ctx, http.MethodGet, endpointReviewsByProduct, path, "", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []model.Review{}, nil
	}
	return resp.Data, nil
}

// SubmitReview はレビューを投稿する。
func (c *Client) SubmitReview(ctx context.Context, token string, review model.Review) error {
	body := map[string]any{
		"productId": review.ProductID,
		"rating":    review.Rating,
		"comment":   review.Comment,
	}
	var resp envelope
	return c.call(ctx, http.MethodPost, EndpointReviews, EndpointReviews, token, body, &resp)
}
