package model

import (
	"encoding/json"
	"sort"
)

// Likes は商品IDからお気に入り有無へのマップ。
// キーが存在しないことは「お気に入りでない」を表し、trueのエントリのみ保持する。
type Likes map[string]bool

// Toggle はお気に入りの有無を反転し、反転後の状態を返す。
func (l Likes) Toggle(productID string) bool {
	if l[productID] {
		delete(l, productID)
		return false
	}
	l[productID] = true
	return true
}

// Clone はお気に入りの複製を返す。
func (l Likes) Clone() Likes {
	out := make(Likes, len(l))
	for k, v := range l {
		if v {
			out[k] = true
		}
	}
	return out
}

// IDs はお気に入り登録された商品IDを昇順で返す。
func (l Likes) IDs() []string {
	ids := make([]string, 0, len(l))
	for k, v := range l {
		if v {
			ids = append(ids, k)
		}
	}
	sort.Strings(ids)
	return ids
}

// UnmarshalJSON はfalseのエントリを落として読み込む。
func (l *Likes) UnmarshalJSON(data []byte) error {
	var wire map[string]bool
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*l = Likes(wire).Clone()
	return nil
}
