package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストレージバックエンドの種別
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend API
	APIURL     string
	APITimeout time.Duration

	// Local storage
	StorageBackend   string
	StorageDir       string
	StorageNamespace string
	DatabaseURL      string
	// StorageRetentionDays はpostgresバックエンドで未更新の行を保持する日数。
	StorageRetentionDays int

	// Mirror
	MirrorQueueSize int

	// Rate Limit (req/min)
	RateLimitGeneral int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 不正な値はデフォルト値にフォールバックする。
// postgresバックエンド選択時にDATABASE_URLが未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIURL = strings.TrimRight(getEnvString("API_URL", getEnvString("VITE_API_URL", "http://localhost:4000")), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)

	cfg.StorageBackend = strings.ToLower(getEnvString("STORAGE_BACKEND", StorageFile))
	cfg.StorageDir = getEnvString("STORAGE_DIR", ".storefront")
	cfg.StorageNamespace = getEnvString("STORAGE_NAMESPACE", "default")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	switch cfg.StorageBackend {
	case StorageFile, StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND: %q", cfg.StorageBackend)
	}

	cfg.StorageRetentionDays = getEnvInt("STORAGE_RETENTION_DAYS", 90)
	if cfg.StorageRetentionDays < 1 {
		cfg.StorageRetentionDays = 90
	}

	cfg.MirrorQueueSize = getEnvInt("MIRROR_QUEUE_SIZE", 256)
	if cfg.MirrorQueueSize < 1 {
		cfg.MirrorQueueSize = 256
	}
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 600)
	cfg.LogLevel = getEnvLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "5174")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
