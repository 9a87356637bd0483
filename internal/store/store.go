// Package store はカート・お気に入り・セッションを保持するクライアント側の状態ストアを提供する。
// ローカルの変更は同期的に適用し、バックエンドへの反映はミラーキュー経由のベストエフォートで行う。
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/storage"
	"github.com/hitoshi/storefront/internal/worker/mirror"
)

// Backend はストアが利用するバックエンドAPIの部分集合。
// backend.Clientを満たす。
type Backend interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetCart(ctx context.Context, token string) (model.Cart, error)
	AddToCart(ctx context.Context, token string, key model.CartKey) error
	RemoveFromCart(ctx context.Context, token string, key model.CartKey) error
	GetLikes(ctx context.Context, token string) (model.Likes, error)
	ToggleLike(ctx context.Context, token, productID string) error
	GetUserData(ctx context.Context, token string) (*model.UserProfile, error)
}

// Mirror はバックエンド反映タスクの送信キュー。mirror.Mirrorを満たす。
type Mirror interface {
	Enqueue(name string, fn mirror.TaskFunc) bool
	Flush(ctx context.Context) error
}

// Store はカート・お気に入り・セッションの状態を保持する。
// アプリケーション起動時に1つだけ生成し、各コンシューマーに注入する。
type Store struct {
	backend Backend
	storage storage.Storage
	mirror  Mirror
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu       sync.RWMutex
	products []model.Product
	index    map[string]int
	cart     model.Cart
	likes    model.Likes
	token    string
	user     *model.UserProfile
}

// New はStoreを生成する。カタログ・カート・お気に入りは空の状態で始まる。
// mcがnilの場合はメトリクスを記録しない。
func New(b Backend, s storage.Storage, m Mirror, logger *slog.Logger, mc metrics.MetricsCollector) *Store {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Store{
		backend: b,
		storage: s,
		mirror:  m,
		logger:  logger,
		metrics: mc,
		index:   make(map[string]int),
		cart:    model.Cart{},
		likes:   model.Likes{},
	}
}

// Init はカタログを取得し、ローカルに保存されたカートを読み込む。
// 永続化されたトークンがあれば、続けてサーバーのカートを加算し、お気に入り・プロフィールを順に取得する。
// 個々の取得失敗はログに残すのみで、Initは失敗しない。
func (s *Store) Init(ctx context.Context) {
	if err := s.RefreshCatalog(ctx); err != nil {
		s.logger.Warn("商品カタログを取得できないため空のカタログで続行します",
			slog.String("error", err.Error()),
		)
	}

	cart := storage.LoadCart(ctx, s.storage, s.logger)
	token := storage.LoadToken(ctx, s.storage, s.logger)

	s.mu.Lock()
	s.cart = cart
	s.token = token
	s.mu.Unlock()

	if token != "" {
		s.syncWithServer(ctx, token)
		return
	}

	s.logger.Info("ゲストモードでカートを復元しました",
		slog.Int("cart_count", cart.Count()),
	)
}

// RefreshCatalog はカタログを丸ごと再取得する。
// 失敗した場合は既存のカタログを空にしてエラーを返す。
func (s *Store) RefreshCatalog(ctx context.Context) error {
	products, err := s.backend.ListProducts(ctx)
	if err != nil {
		products = nil
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}

	s.mu.Lock()
	s.products = products
	s.index = index
	s.mu.Unlock()

	s.metrics.SetCatalogSize(len(products))
	return err
}

// Login はトークンを保存し、サーバーのカートを統合してお気に入りとプロフィールを取得する。
// ゲスト中にカートへ追加した商品はサーバーのカートに加算される。
func (s *Store) Login(ctx context.Context, token string) error {
	if token == "" {
		return model.NewLoginFailedError("トークンが空です")
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.storage.Set(ctx, storage.KeyToken, token); err != nil {
		s.logger.Warn("トークンの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.syncWithServer(ctx, token)
	return nil
}

// syncWithServer はサーバーのカート、お気に入り、プロフィールを順に取得して反映する。
// 取得中にトークンが変わった場合（ログアウトなど）は結果を捨てる。
func (s *Store) syncWithServer(ctx context.Context, token string) {
	serverCart, err := s.backend.GetCart(ctx, token)
	if err != nil {
		s.logger.Warn("サーバーのカートを取得できないためローカルのカートを維持します",
			slog.String("error", err.Error()),
		)
	} else {
		s.mu.Lock()
		if s.token == token {
			s.cart = model.MergeCarts(s.cart, serverCart)
			storage.SaveCart(ctx, s.storage, s.cart, s.logger)
			s.metrics.RecordCartMutation("merge")
		}
		s.mu.Unlock()
	}

	likes, err := s.backend.GetLikes(ctx, token)
	if err != nil {
		s.logger.Warn("お気に入りの取得に失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		s.mu.Lock()
		if s.token == token {
			s.likes = likes.Clone()
		}
		s.mu.Unlock()
	}

	user, err := s.backend.GetUserData(ctx, token)
	if err != nil {
		s.logger.Warn("ユーザー情報の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	s.mu.Lock()
	if s.token == token {
		s.user = user
	}
	s.mu.Unlock()
}

// Logout はトークンとプロフィールを破棄する。
// カートとお気に入りはメモリ上に残し、カートは引き続きローカルに永続化する。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, storage.KeyToken); err != nil {
		s.logger.Warn("永続化されたトークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// AddToCart は指定バリエーションの数量を1増やす。
// 商品がカタログに存在しない、在庫がない、または在庫数を超える場合は状態を変更せず*model.APIErrorを返す。
// 認証済みの場合はバックエンドへの反映をキューに積む。
func (s *Store) AddToCart(ctx context.Context, productID, color, size string) error {
	key := model.NewCartKey(productID, color, size)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key.ProductID]
	if !ok {
		return s.reject(key, model.NewProductNotFoundError(key.ProductID))
	}
	product := s.products[i]
	if !product.InStock() {
		return s.reject(key, model.NewOutOfStockError(key.ProductID))
	}
	if s.cart[key]+1 > product.Stock {
		return s.reject(key, model.NewStockExceededError(key.ProductID, product.Stock))
	}

	s.cart[key]++
	storage.SaveCart(ctx, s.storage, s.cart, s.logger)
	s.metrics.RecordCartMutation("add")

	if token := s.token; token != "" {
		s.mirror.Enqueue("cart.add", func(ctx context.Context) error {
			return s.backend.AddToCart(ctx, token, key)
		})
	}
	return nil
}

// reject は拒否された追加操作を記録してエラーを返す。s.muを保持した状態で呼ぶこと。
func (s *Store) reject(key model.CartKey, apiErr *model.APIError) error {
	s.metrics.RecordCartRejection(apiErr.Code)
	s.logger.Info("カートへの追加を拒否しました",
		slog.String("cart_key", key.String()),
		slog.String("code", apiErr.Code),
	)
	return apiErr
}

// RemoveFromCart は指定キーの数量を1減らし、0以下になったキーは削除する。
// 存在しないキーに対しては何もしない。
func (s *Store) RemoveFromCart(ctx context.Context, key model.CartKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty, ok := s.cart[key]
	if !ok {
		return
	}
	if qty <= 1 {
		delete(s.cart, key)
	} else {
		s.cart[key] = qty - 1
	}
	storage.SaveCart(ctx, s.storage, s.cart, s.logger)
	s.metrics.RecordCartMutation("remove")

	if token := s.token; token != "" {
		s.mirror.Enqueue("cart.remove", func(ctx context.Context) error {
			return s.backend.RemoveFromCart(ctx, token, key)
		})
	}
}

// ClearCart はカートを空にして永続化する。注文確定後に使う。
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = model.Cart{}
	storage.SaveCart(ctx, s.storage, s.cart, s.logger)
	s.metrics.RecordCartMutation("clear")
}

// ToggleLike はお気に入り状態を反転し、反転後の状態を返す。
func (s *Store) ToggleLike(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	liked := s.likes.Toggle(productID)

	if token := s.token; token != "" {
		s.mirror.Enqueue("likes.toggle", func(ctx context.Context) error {
			return s.backend.ToggleLike(ctx, token, productID)
		})
	}
	return liked
}

// TotalCartAmount はカート内の数量×カタログ価格の合計を返す。
// カタログに存在しない商品は0として扱う。
func (s *Store) TotalCartAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for key, qty := range s.cart {
		i, ok := s.index[key.ProductID]
		if !ok || qty <= 0 {
			continue
		}
		total = total.Add(s.products[i].Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// CartLines はカートの各エントリを商品情報と結合し、キー順で返す。
// カタログに存在しない商品のエントリは含めない。
func (s *Store) CartLines() []model.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]model.CartLine, 0, len(s.cart))
	for _, key := range s.cart.Keys() {
		i, ok := s.index[key.ProductID]
		if !ok {
			continue
		}
		qty := s.cart[key]
		product := s.products[i]
		lines = append(lines, model.CartLine{
			Key:      key,
			Product:  product,
			Quantity: qty,
			Subtotal: product.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return lines
}

// Flush はキューに積まれたバックエンド反映がすべて完了するまで待つ。
func (s *Store) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

// Products はカタログの複製を返す。
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Product(nil), s.products...)
}

// Product は指定IDの商品を返す。
func (s *Store) Product(id string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Product{}, false
	}
	return s.products[i], true
}

// Cart はカートの複製を返す。
func (s *Store) Cart() model.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// CartCount はカート内の総数量を返す。
func (s *Store) CartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

// Likes はお気に入りの複製を返す。
func (s *Store) Likes() model.Likes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.likes.Clone()
}

// IsLiked は商品がお気に入りに含まれるかを返す。
func (s *Store) IsLiked(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.likes[productID]
}

// Token は現在のセッショントークンを返す。未ログインの場合は空文字列。
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User はログイン中のユーザー情報を返す。未取得の場合はnil。
func (s *Store) User() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
