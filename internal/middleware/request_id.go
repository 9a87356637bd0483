package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/storefront/internal/backend"
)

// RequestIDHeader はリクエスト相関IDのヘッダー名。
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength は受け付ける相関IDの最大長。これを超える値は破棄して採番し直す。
const maxRequestIDLength = 128

// NewRequestIDMiddleware はリクエストごとに相関IDを付与するミドルウェアを返す。
// クライアントがX-Request-IDを送った場合はそれを使い、なければUUIDを採番する。
// 相関IDはレスポンスヘッダーに返し、バックエンド呼び出しにも引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := backend.WithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
