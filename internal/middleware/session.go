// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
)

// TokenSource は現在のセッショントークンを提供する。store.Storeが満たす。
type TokenSource interface {
	Token() string
}

// NewSessionMiddleware はストアにセッショントークンがあることを要求するミドルウェアを返す。
// 未ログインのリクエストには統一エラーフォーマットで401 Unauthorizedを返す。
func NewSessionMiddleware(tokens TokenSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens.Token() == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
