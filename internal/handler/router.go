// Package handler はローカルストアフロントAPIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
)

// StoreInterface はハンドラー群が利用するストアの操作をまとめたもの。store.Storeが満たす。
type StoreInterface interface {
	CatalogReader
	CartStore
	SessionStore
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ドメイン
	Store         StoreInterface
	Authenticator Authenticator
	OrderService  OrderServiceInterface
	ReviewService ReviewServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	productHandler := NewProductHandler(deps.Store)
	cartHandler := NewCartHandler(deps.Store)
	sessionHandler := NewSessionHandler(deps.Authenticator, deps.Store)
	orderHandler := NewOrderHandler(deps.OrderService)
	reviewHandler := NewReviewHandler(deps.ReviewService)

	requireSession := middleware.NewSessionMiddleware(deps.Store)

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 商品
		r.Get("/products", productHandler.ListProducts)
		r.Route("/products/{id}", func(r chi.Router) {
			r.Get("/", productHandler.GetProduct)
			r.Get("/reviews", reviewHandler.ListReviews)
			r.With(requireSession).Post("/reviews", reviewHandler.SubmitReview)
		})
		r.Get("/categories", productHandler.ListCategories)
		r.Get("/compare", productHandler.Compare)

		// カート
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{key}", cartHandler.RemoveItem)
		})

		// お気に入り
		r.Get("/likes", cartHandler.ListLikes)
		r.Post("/likes/{id}/toggle", cartHandler.ToggleLike)

		// セッション（ログイン系は専用レート制限を追加）
		r.Route("/session", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/", sessionHandler.Login)
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", sessionHandler.Register)
			r.Delete("/", sessionHandler.Logout)
			r.With(requireSession).Get("/me", sessionHandler.Me)
		})

		// 注文
		r.Route("/orders", func(r chi.Router) {
			r.Post("/verify", orderHandler.Verify)
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Get("/", orderHandler.ListOrders)
				r.Post("/", orderHandler.PlaceOrder)
			})
		})
	})

	return r
}
