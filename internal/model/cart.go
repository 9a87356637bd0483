package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultOption は色・サイズが未指定であることを表すワイヤ上のトークン。
const defaultOption = "default"

// cartKeySeparator はワイヤ形式のカートキーの区切り文字。
const cartKeySeparator = "_"

// CartKey は購入可能なバリエーション（商品ID・色・サイズ）を識別する構造化キー。
// ColorとSizeの空文字列は「未指定」を表す。
type CartKey struct {
	ProductID string
	Color     string
	Size      string
}

// NewCartKey はCartKeyを生成する。"default" は未指定として正規化する。
func NewCartKey(productID, color, size string) CartKey {
	return CartKey{
		ProductID: productID,
		Color:     normalizeOption(color),
		Size:      normalizeOption(size),
	}
}

// ParseCartKey はワイヤ形式 "{productId}_{color|default}_{size|default}" をパースする。
// 3要素に分割できない場合は文字列全体を商品IDとして扱う。
// 色に区切り文字が含まれる場合に備え、商品IDは先頭、サイズは末尾の要素とする。
func ParseCartKey(s string) CartKey {
	parts := strings.Split(s, cartKeySeparator)
	if len(parts) < 3 {
		return CartKey{ProductID: s}
	}
	return NewCartKey(
		parts[0],
		strings.Join(parts[1:len(parts)-1], cartKeySeparator),
		parts[len(parts)-1],
	)
}

// String はワイヤ形式のキー文字列を返す。
func (k CartKey) String() string {
	return k.ProductID + cartKeySeparator + wireOption(k.Color) + cartKeySeparator + wireOption(k.Size)
}

// Less はProductID、Color、Sizeの順に辞書順で比較する。
func (k CartKey) Less(other CartKey) bool {
	if k.ProductID != other.ProductID {
		return k.ProductID < other.ProductID
	}
	if k.Color != other.Color {
		return k.Color < other.Color
	}
	return k.Size < other.Size
}

// MarshalText はJSONオブジェクトのキーとしてワイヤ形式を出力する。
func (k CartKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText はワイヤ形式のキーを読み込む。
func (k *CartKey) UnmarshalText(text []byte) error {
	*k = ParseCartKey(string(text))
	return nil
}

func normalizeOption(v string) string {
	if v == defaultOption {
		return ""
	}
	return v
}

func wireOption(v string) string {
	if v == "" {
		return defaultOption
	}
	return v
}

// Cart はカートキーから数量へのマップ。
// 数量が0以下のエントリは保持しない。
type Cart map[CartKey]int

// Clone はカートの複製を返す。
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Sanitized は数量が0以下のエントリを除いた複製を返す。
func (c Cart) Sanitized() Cart {
	out := make(Cart, len(c))
	for k, v := range c {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Count はカート内の総数量を返す。
func (c Cart) Count() int {
	n := 0
	for _, v := range c {
		if v > 0 {
			n += v
		}
	}
	return n
}

// Keys はキーを昇順で返す。
func (c Cart) Keys() []CartKey {
	keys := make([]CartKey, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// MergeCarts はローカルカートとサーバーカートを数量の加算で統合する。
// 両方に存在するキーは数量を合計し、片方にのみ存在するキーはそのまま残す。
// 結果が0以下になったキーは除去する。どちらの引数も変更しない。
func MergeCarts(local, server Cart) Cart {
	merged := local.Clone()
	for k, qty := range server {
		merged[k] += qty
	}
	return merged.Sanitized()
}

// MarshalJSON はワイヤ形式のJSONオブジェクトを出力する。
// 数量が0以下のエントリは出力しない。
func (c Cart) MarshalJSON() ([]byte, error) {
	wire := make(map[string]int, len(c))
	for k, v := range c {
		if v > 0 {
			wire[k.String()] = v
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON はワイヤ形式のJSONオブジェクトを読み込む。
// 同じバリエーションを指す表記揺れ（"default" と空文字）は加算して1エントリにまとめる。
func (c *Cart) UnmarshalJSON(data []byte) error {
	var wire map[string]int
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to decode cart: %w", err)
	}
	out := make(Cart, len(wire))
	for k, v := range wire {
		out[ParseCartKey(k)] += v
	}
	*c = out.Sanitized()
	return nil
}

// CartLine はカートの1エントリを商品情報と結合したもの。
type CartLine struct {
	Key      CartKey         `json:"cartKey"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
