package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// バックエンドは価格・金額をJSONの数値として扱う
	decimal.MarshalJSONWithoutQuotes = true
}

// Product はバックエンドが管理する商品カタログのエントリを表す。
// クライアントからは変更しない。カタログは常に丸ごと再取得する。
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	Colors      []string        `json:"colors,omitempty"`
	Sizes       []string        `json:"sizes,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
}

// InStock は在庫が1点以上あるかを返す。
func (p *Product) InStock() bool {
	return p.Stock > 0
}
