package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/storefront/internal/storage"
)

// PostgresStorageRepo はPostgreSQLを使用したキー・バリューストレージ。
// namespace単位でキーを分離し、複数のストアフロントインスタンスが1つのDBを共有できる。
type PostgresStorageRepo struct {
	db        *sql.DB
	namespace string
}

// NewPostgresStorageRepo はPostgresStorageRepoを生成する。
func NewPostgresStorageRepo(db *sql.DB, namespace string) *PostgresStorageRepo {
	return &PostgresStorageRepo{db: db, namespace: namespace}
}

// Namespace はこのリポジトリが使う名前空間を返す。
func (r *PostgresStorageRepo) Namespace() string {
	return r.namespace
}

// Get はキーの値を返す。存在しない場合はokがfalseになる。
func (r *PostgresStorageRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE namespace = $1 AND key = $2`,
		r.namespace, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to get %q: %v", storage.ErrUnavailable, key, err)
	}

	return value, true, nil
}

// Set はキーに値を保存する。既存の値は上書きする。
func (r *PostgresStorageRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO local_storage (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = now()`,
		r.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to set %q: %v", storage.ErrUnavailable, key, err)
	}
	return nil
}

// Remove はキーを削除する。存在しない場合もエラーにしない。
func (r *PostgresStorageRepo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE namespace = $1 AND key = $2`,
		r.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to remove %q: %v", storage.ErrUnavailable, key, err)
	}
	return nil
}

// Clear は名前空間内の全キーを削除する。
func (r *PostgresStorageRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE namespace = $1`,
		r.namespace,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to clear namespace %q: %v", storage.ErrUnavailable, r.namespace, err)
	}
	return nil
}

// compile-time interface check
var _ StorageRepository = (*PostgresStorageRepo)(nil)
