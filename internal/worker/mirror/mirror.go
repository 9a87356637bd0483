// Package mirror はローカル状態の変更をバックエンドへ反映するベストエフォートの送信キューを提供する。
// 失敗はログとメトリクスに残すだけで、呼び出し元のローカル状態には影響させない。
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/metrics"
)

const (
	// defaultQueueSize はキューサイズ未指定時のデフォルト値。
	defaultQueueSize = 256
	// defaultTimeout は1タスクあたりのデフォルトタイムアウト。
	defaultTimeout = 10 * time.Second
)

// TaskFunc はキューで実行される1回分のバックエンド呼び出し。
type TaskFunc func(ctx context.Context) error

type task struct {
	id   string
	name string
	fn   TaskFunc
	// done はFlush用の目印タスクでのみ設定される。
	done chan struct{}
}

// Mirror はFIFOキューと単一のワーカーgoroutineでタスクを順番に実行する。
// ワーカーが1つなのでカート追加・削除の反映順序は呼び出し順と一致する。
type Mirror struct {
	queue   chan task
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu       sync.RWMutex
	closed   bool
	finished chan struct{}
}

// New はMirrorを生成し、ワーカーを起動する。
// queueSizeが0以下の場合は256、timeoutが0以下の場合は10秒を使用する。
func New(queueSize int, timeout time.Duration, logger *slog.Logger, mc metrics.MetricsCollector) *Mirror {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	m := &Mirror{
		queue:    make(chan task, queueSize),
		timeout:  timeout,
		logger:   logger,
		metrics:  mc,
		finished: make(chan struct{}),
	}
	go m.run()
	return m
}

// Enqueue はタスクをキューに追加する。呼び出し元をブロックしない。
// キューが満杯またはクローズ済みの場合はタスクを破棄してfalseを返す。
func (m *Mirror) Enqueue(name string, fn TaskFunc) bool {
	t := task{id: uuid.NewString(), name: name, fn: fn}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		m.logger.Warn("ミラーキューはクローズ済みのためタスクを破棄しました",
			slog.String("task", name),
			slog.String("task_id", t.id),
		)
		m.metrics.RecordMirrorResult(name, false)
		return false
	}

	select {
	case m.queue <- t:
		return true
	default:
		m.logger.Warn("ミラーキューが満杯のためタスクを破棄しました",
			slog.String("task", name),
			slog.String("task_id", t.id),
			slog.Int("queue_size", cap(m.queue)),
		)
		m.metrics.RecordMirrorResult(name, false)
		return false
	}
}

// Flush はFlush呼び出し以前にキューに入ったタスクがすべて完了するまで待つ。
func (m *Mirror) Flush(ctx context.Context) error {
	marker := task{done: make(chan struct{})}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil
	}
	select {
	case m.queue <- marker:
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}
	m.mu.RUnlock()

	select {
	case <-marker.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close は新規タスクの受け付けを止め、残りのタスクを実行し終えてからワーカーを停止する。
// 複数回呼び出しても安全。
func (m *Mirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	<-m.finished
}

func (m *Mirror) run() {
	defer close(m.finished)

	for t := range m.queue {
		if t.done != nil {
			close(t.done)
			continue
		}
		m.execute(t)
	}
}

// execute はタスクを1つ実行する。パニックは回収してエラーとして扱う。
func (m *Mirror) execute(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	ctx = backend.WithRequestID(ctx, t.id)

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return t.fn(ctx)
	}()

	m.metrics.RecordMirrorResult(t.name, err == nil)

	if err != nil {
		m.logger.Warn("バックエンドへの反映に失敗しました",
			slog.String("task", t.name),
			slog.String("task_id", t.id),
			slog.String("error", err.Error()),
		)
		return
	}

	m.logger.Debug("バックエンドへの反映が完了しました",
		slog.String("task", t.name),
		slog.String("task_id", t.id),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
