package model

import "time"

// Review は商品レビューを表す。
type Review struct {
	ID        string     `json:"_id,omitempty"`
	ProductID string     `json:"productId"`
	UserName  string     `json:"userName,omitempty"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ReviewSummary はレビュー件数と平均評価（小数第1位で丸め）。
type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
