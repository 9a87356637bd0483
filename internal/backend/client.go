// Package backend はストアフロントのREST APIバックエンドとの通信を提供する。
// 認証はBearerではなく独自の "token" ヘッダーで行う。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/storefront/internal/metrics"
)

const (
	// tokenHeader は認証トークンを載せるヘッダー名。
	tokenHeader = "token"
	// requestIDHeader はリクエスト相関IDのヘッダー名。
	requestIDHeader = "X-Request-ID"
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 10 << 20
)

// requestIDKey はコンテキストに相関IDを格納するためのキー。
type requestIDKey struct{}

// WithRequestID はバックエンド呼び出しに付与する相関IDをコンテキストに設定する。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext はコンテキストの相関IDを返す。未設定の場合は空文字列。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client はストアフロントのバックエンドAPIクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは末尾のスラッシュを含まないURL（例: "http://localhost:4000"）。
// mcがnilの場合はメトリクスを記録しない。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    mc,
		baseURL:    baseURL,
	}
}

// BaseURL はバックエンドのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope はバックエンドの共通レスポンス形式。
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *envelope) status() *envelope { return e }

// response はenvelopeを埋め込んだレスポンス型が満たすインターフェース。
type response interface {
	status() *envelope
}

// call はバックエンドAPIを1回呼び出す。
// endpointはメトリクスとログに使うパステンプレート、pathは実際のリクエストパス。
// tokenが空でない場合はtokenヘッダーを付与する。
// 非2xxは*StatusError、success:falseは*RemoteErrorとして返す。
func (c *Client) call(ctx context.Context, method, endpoint, path, token string, body any, out response) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Storefront/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordBackendLatency(endpoint, time.Since(start))
	if err != nil {
		c.metrics.RecordBackendStatus(endpoint, 0)
		c.logger.Warn("バックエンドAPIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendStatus(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("バックエンドAPIのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if env := out.status(); !env.Success {
		return &RemoteError{Endpoint: endpoint, Message: env.Message}
	}

	return nil
}
