package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/storefront/internal/model"
)

// LoadCart は永続化されたカートを読み込む。
// 読み込みやパースに失敗した場合はログに残して空のカートを返す。
func LoadCart(ctx context.Context, s Storage, logger *slog.Logger) model.Cart {
	raw, ok, err := s.Get(ctx, KeyCart)
	if err != nil {
		logger.Warn("永続化されたカートの読み込みに失敗しました", slog.String("error", err.Error()))
		return model.Cart{}
	}
	if !ok || raw == "" {
		return model.Cart{}
	}

	var cart model.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		logger.Warn("永続化されたカートが破損しているため空のカートを使用します", slog.String("error", err.Error()))
		return model.Cart{}
	}
	return cart
}

// SaveCart は数量0以下のエントリを除いたカートを永続化する。
// 失敗はログに残すのみで呼び出し元には返さない。
func SaveCart(ctx context.Context, s Storage, cart model.Cart, logger *slog.Logger) {
	data, err := json.Marshal(cart.Sanitized())
	if err != nil {
		logger.Warn("カートのエンコードに失敗しました", slog.String("error", err.Error()))
		return
	}
	if err := s.Set(ctx, KeyCart, string(data)); err != nil {
		logger.Warn("カートの永続化に失敗しました", slog.String("error", err.Error()))
	}
}

// LoadToken は永続化された認証トークンを返す。失敗時は空文字列。
func LoadToken(ctx context.Context, s Storage, logger *slog.Logger) string {
	token, ok, err := s.Get(ctx, KeyToken)
	if err != nil {
		logger.Warn("永続化されたトークンの読み込みに失敗しました", slog.String("error", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	return token
}
