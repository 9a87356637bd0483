// Package storage はブラウザのlocalStorage相当のキー・バリュー永続化を提供する。
// ゲストのカートと認証トークンの唯一の永続化手段として使う。
package storage

import (
	"context"
	"errors"
)

// 永続化に使うキー
const (
	// KeyCart はカート（JSONエンコード済み）を保存するキー。
	KeyCart = "cartItems"
	// KeyToken は認証トークン（プレーン文字列）を保存するキー。
	KeyToken = "token"
)

// ErrUnavailable はストレージが利用できないことを表す。
var ErrUnavailable = errors.New("storage unavailable")

// Storage は文字列のキー・バリューを永続化するインターフェース。
type Storage interface {
	// Get はキーの値を返す。存在しない場合はokがfalseになる。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set はキーに値を保存する。
	Set(ctx context.Context, key, value string) error
	// Remove はキーを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, key string) error
}
