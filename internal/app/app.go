package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/checkout"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/review"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/storage"
	"github.com/hitoshi/storefront/internal/store"
	"github.com/hitoshi/storefront/internal/worker/cleanup"
	"github.com/hitoshi/storefront/internal/worker/mirror"
)

// defaultServerPort はSERVER_PORT未設定時のポート。
const defaultServerPort = "5174"

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数を読み込み、設定されたログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultServerPort
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_url", cfg.APIURL),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// application はserveモードで組み立てた依存関係一式。
type application struct {
	handler http.Handler
	store   *store.Store
	mirror  *mirror.Mirror
	limiter *middleware.RateLimiter
	db      *sql.DB
	cleanup *cleanup.CleanupJob
}

// newApplication は設定に従って全依存関係をワイヤリングし、ストアを初期化する。
// ストアの初期化はバックエンドに接続できなくても失敗しない。
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. ローカルストレージ
	st, db, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	// 3. バックエンドクライアントとミラーキュー
	client := backend.NewClient(&http.Client{Timeout: cfg.APITimeout}, cfg.APIURL, log, collector)
	m := mirror.New(cfg.MirrorQueueSize, cfg.APITimeout, log, collector)

	// 4. ストアの初期化
	s := store.New(client, st, m, log, collector)
	s.Init(ctx)

	// 5. ドメインサービス
	// 決済ページはAPIやフロントエンドと同じオリジンで配信されることがある
	trustedOrigins := append([]string{cfg.APIURL}, strings.Split(cfg.CORSAllowedOrigin, ",")...)
	orderService := checkout.NewService(client, s, log, trustedOrigins...)
	reviewService := review.NewService(client, s, security.NewContentSanitizer(), log)

	// 6. ルーター
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))
	deps := &handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		MetricsHandler:    metrics.Handler(reg),
		Store:             s,
		Authenticator:     client,
		OrderService:      orderService,
		ReviewService:     reviewService,
	}

	a := &application{
		store:   s,
		mirror:  m,
		limiter: limiter,
	}
	if db != nil {
		deps.HealthChecker = db
		a.db = db
		a.cleanup = cleanup.NewCleanupJob(db, log)
		a.cleanup.RetentionDays = cfg.StorageRetentionDays
	}
	a.handler = handler.NewRouter(deps)

	return a, nil
}

// openStorage はSTORAGE_BACKENDに応じたローカルストレージを開く。
// postgresの場合はマイグレーションを適用し、接続中の*sql.DBも返す。
func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, *sql.DB, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil, nil

	case config.StoragePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
			slog.String("namespace", cfg.StorageNamespace),
		)
		return repository.NewPostgresStorageRepo(db, cfg.StorageNamespace), db, nil

	default:
		fs, err := storage.NewFileStorage(cfg.StorageDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		log.Info("file storage opened", slog.String("path", fs.Path()))
		return fs, nil, nil
	}
}

// Close は未送信のミラータスクを送り切ってから各リソースを解放する。
func (a *application) Close(ctx context.Context) {
	if err := a.store.Flush(ctx); err != nil {
		slog.Warn("pending mirror tasks were not flushed", slog.String("error", err.Error()))
	}
	a.mirror.Close()
	a.limiter.Stop()
	if a.db != nil {
		a.db.Close()
	}
}

// runServe はローカルAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}

	// postgresバックエンドでは放置された名前空間の行を日次で削除する
	if a.cleanup != nil {
		go a.cleanup.Start(ctx, 24*time.Hour)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		a.Close(context.Background())
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.Close(shutdownCtx)

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はlocal_storageテーブルのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
