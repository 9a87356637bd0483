// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/storefront/internal/storage"
)

// StorageRepository は名前空間付きキー・バリューの永続化インターフェース。
// storage.Storageとして店舗クライアントの状態保存に使う。
type StorageRepository interface {
	storage.Storage

	// Clear は名前空間内の全キーを削除する。
	Clear(ctx context.Context) error
}
