// Package cleanup は放置されたローカルストレージ行の自動削除ジョブを提供する。
// PostgreSQLバックエンドでは複数インスタンスが名前空間を分けて1つのテーブルを共有するため、
// 保持期間（デフォルト90日）更新されていない行を日次で削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays はローカルストレージ行のデフォルト保持日数。
const DefaultRetentionDays = 90

const deleteStaleQuery = `DELETE FROM local_storage WHERE updated_at < now() - $1::interval`

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CleanupJob は保持期間を超過したlocal_storage行の削除ジョブ。
// 削除は冪等で、対象がなくてもエラーにならない。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 行の保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run はupdated_atがRetentionDays日前より古い行を削除する。
// RetentionDaysが1未満の場合はDefaultRetentionDaysで削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	days := j.RetentionDays
	if days < 1 {
		days = DefaultRetentionDays
	}

	result, err := j.db.ExecContext(ctx, deleteStaleQuery, fmt.Sprintf("%d days", days))
	if err != nil {
		j.logger.Error("ローカルストレージのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", days),
		)
		return fmt.Errorf("ローカルストレージのクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("ローカルストレージのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", days),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後はintervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。個々の失敗はログに残して続行する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
